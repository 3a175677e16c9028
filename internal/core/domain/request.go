package domain

// Request é a visão do gatekeeper sobre uma requisição HTTP de entrada.
type Request struct {
	Method        string
	Path          string
	UserAgent     string
	Authorization string
	Origin        string
	Referer       string
	ClientIP      string
}

// Verdict descreve como uma requisição foi classificada e, se passou pelo limiter, a decisão.
type Verdict struct {
	Exempt       bool
	AuthEndpoint bool
	Decision     Decision
}
