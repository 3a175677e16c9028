package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
	"github.com/JeanGrijp/coachgate/internal/core/ports"
)

// GatekeeperConfig define o ambiente e as listas usadas na classificação.
type GatekeeperConfig struct {
	Production     bool
	AllowedOrigins []string
	Policy         domain.Policy
}

// GatekeeperService aplica, em ordem, isenção, bloqueio de ferramentas, validação de origem e rate limit.
type GatekeeperService struct {
	limiter ports.RateLimiter
	config  GatekeeperConfig
}

var _ ports.Gatekeeper = (*GatekeeperService)(nil)

func NewGatekeeperService(limiter ports.RateLimiter, cfg GatekeeperConfig) (*GatekeeperService, error) {
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	cfg.AllowedOrigins = origins

	return &GatekeeperService{limiter: limiter, config: cfg}, nil
}

func (g *GatekeeperService) Production() bool {
	return g.config.Production
}

// Evaluate classifica a requisição. Um erro de recusa (domain.IsRejection) encerra a requisição;
// qualquer outro erro é falha interna.
func (g *GatekeeperService) Evaluate(ctx context.Context, req domain.Request) (domain.Verdict, error) {
	policy := g.config.Policy

	if policy.IsExempt(req.Path) {
		return domain.Verdict{Exempt: true}, nil
	}

	verdict := domain.Verdict{AuthEndpoint: policy.IsAuthEndpoint(req.Path)}

	if g.config.Production && !verdict.AuthEndpoint {
		if policy.IsBlockedAgent(req.UserAgent) && !domain.HasBearerToken(req.Authorization) {
			return verdict, domain.ErrBlockedClient
		}

		if policy.IsAPI(req.Path) && !g.originAllowed(req) {
			return verdict, domain.ErrInvalidOrigin
		}
	}

	decision, err := g.limiter.Allow(ctx, domain.RateLimitRequest{ClientIP: req.ClientIP, Path: req.Path})
	verdict.Decision = decision
	if err != nil {
		return verdict, err
	}

	return verdict, nil
}

func (g *GatekeeperService) originAllowed(req domain.Request) bool {
	checkURL := req.Origin
	if checkURL == "" {
		checkURL = req.Referer
	}
	if checkURL == "" {
		return req.Authorization != ""
	}

	for _, origin := range g.config.AllowedOrigins {
		if strings.HasPrefix(checkURL, origin) {
			return true
		}
	}
	return false
}
