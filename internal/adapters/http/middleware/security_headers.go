package middleware

import "net/http"

const hstsValue = "max-age=31536000; includeSubDomains"

func stampSecurityHeaders(h http.Header, production bool) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	if production {
		h.Set("Strict-Transport-Security", hstsValue)
	}
}

// securityHeadersWriter aplica os headers imediatamente antes da primeira escrita,
// sobrescrevendo o que o handler tiver definido.
type securityHeadersWriter struct {
	http.ResponseWriter
	production bool
	stamped    bool
}

func (w *securityHeadersWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	stampSecurityHeaders(w.ResponseWriter.Header(), w.production)
}

func (w *securityHeadersWriter) WriteHeader(status int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(status)
}

func (w *securityHeadersWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *securityHeadersWriter) Flush() {
	w.stamp()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *securityHeadersWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
