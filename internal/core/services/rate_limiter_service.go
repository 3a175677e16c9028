package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
	"github.com/JeanGrijp/coachgate/internal/core/ports"
)

// Config agrega o limite aplicado a cada par ip+path.
type Config struct {
	Rule domain.RateLimitRule
	// Clock permite controlar o tempo nos testes. Quando nil usa time.Now.
	Clock func() time.Time
}

// RateLimiterService implementa a janela deslizante por chave ip:path.
type RateLimiterService struct {
	storage ports.Storage
	config  Config
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(storage ports.Storage, cfg Config) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if !cfg.Rule.Valid() {
		return nil, fmt.Errorf("rate limit rule must have positive values")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &RateLimiterService{storage: storage, config: cfg}, nil
}

// Allow avalia se a requisição cabe na janela. A requisição recusada não é contabilizada.
func (s *RateLimiterService) Allow(ctx context.Context, req domain.RateLimitRequest) (domain.Decision, error) {
	if strings.TrimSpace(req.ClientIP) == "" {
		return domain.Decision{}, fmt.Errorf("client ip is required")
	}

	rule := s.config.Rule
	key := req.Key()

	count, allowed, err := s.storage.Acquire(ctx, key, s.config.Clock(), rule)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("acquire %s: %w", key, err)
	}

	decision := domain.Decision{
		Allowed:      allowed,
		Identifier:   key,
		AppliedRule:  rule,
		CurrentCount: count,
	}
	if !allowed {
		decision.RetryAfter = rule.Window
		return decision, domain.ErrRateLimited
	}

	return decision, nil
}

func (s *RateLimiterService) Rule() domain.RateLimitRule {
	return s.config.Rule
}
