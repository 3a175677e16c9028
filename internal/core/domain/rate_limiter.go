// Package domain concentra entidades e estruturas centrais do gatekeeper.
package domain

import (
	"strings"
	"time"
)

type RateLimitRule struct {
	Requests int
	Window   time.Duration
}

// Valid indica se a regra tem limite e janela positivos.
func (r RateLimitRule) Valid() bool {
	return r.Requests > 0 && r.Window > 0
}

// RetryAfterSeconds arredonda a janela para cima, nunca abaixo de 1.
func (r RateLimitRule) RetryAfterSeconds() int {
	secs := int((r.Window + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

type RateLimitRequest struct {
	ClientIP string
	Path     string
}

// Key monta a chave composta "ip:path" usada no ledger.
func (r RateLimitRequest) Key() string {
	return strings.TrimSpace(r.ClientIP) + ":" + r.Path
}

type Decision struct {
	Allowed      bool
	Identifier   string
	AppliedRule  RateLimitRule
	CurrentCount int64
	RetryAfter   time.Duration
}
