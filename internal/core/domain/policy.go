package domain

import (
	"path"
	"strings"
)

const BearerPrefix = "Bearer "

// Policy reúne as listas fixas que classificam as requisições.
type Policy struct {
	ExemptPaths      []string
	ExemptPrefixes   []string
	StaticExtensions []string
	AuthPaths        []string
	APIPrefix        string
	BlockedAgents    []string
}

func DefaultPolicy() Policy {
	return Policy{
		ExemptPaths:    []string{"/health", "/healthz", "/readyz", "/api/health", "/test", "/api/test"},
		ExemptPrefixes: []string{"/static/", "/assets/", "/uploads/"},
		StaticExtensions: []string{
			".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
			".woff", ".woff2", ".ttf", ".eot", ".otf",
			".css", ".js", ".map",
			".json", ".xml", ".txt",
		},
		AuthPaths:     []string{"/api/auth/login", "/api/auth/register"},
		APIPrefix:     "/api/",
		BlockedAgents: []string{"curl", "wget", "httpie", "postman", "insomnia", "python-requests", "python-urllib"},
	}
}

func (p Policy) IsExempt(requestPath string) bool {
	for _, exact := range p.ExemptPaths {
		if requestPath == exact {
			return true
		}
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(requestPath))
	if ext == "" {
		return false
	}
	for _, static := range p.StaticExtensions {
		if ext == strings.ToLower(static) {
			return true
		}
	}
	return false
}

func (p Policy) IsAuthEndpoint(requestPath string) bool {
	for _, authPath := range p.AuthPaths {
		if requestPath == authPath {
			return true
		}
	}
	return false
}

func (p Policy) IsAPI(requestPath string) bool {
	return p.APIPrefix != "" && strings.HasPrefix(requestPath, p.APIPrefix)
}

// IsBlockedAgent compara o user-agent em minúsculas com as assinaturas de ferramentas conhecidas.
func (p Policy) IsBlockedAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return false
	}
	for _, sig := range p.BlockedAgents {
		if sig != "" && strings.Contains(ua, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}

func HasBearerToken(authorization string) bool {
	return strings.HasPrefix(authorization, BearerPrefix)
}
