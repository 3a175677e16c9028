// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
)

// Storage guarda o ledger de timestamps por chave.
// Acquire remove entradas fora da janela, avalia o limite e registra now somente
// quando a requisição é permitida, tudo de forma atômica para a mesma chave.
type Storage interface {
	Acquire(ctx context.Context, key string, now time.Time, rule domain.RateLimitRule) (count int64, allowed bool, err error)
}
