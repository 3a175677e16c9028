// Package memory disponibiliza o ledger em memória, local ao processo.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
	"github.com/JeanGrijp/coachgate/internal/core/ports"
)

// Storage mantém um ledger por chave. O lock do mapa só protege a busca/criação do
// ledger; a avaliação e o registro usam o lock do próprio ledger.
type Storage struct {
	mu      sync.Mutex
	ledgers map[string]*ledger
}

type ledger struct {
	mu   sync.Mutex
	hits []time.Time
	// dead marca ledgers removidos pelo Sweep; quem ainda segura o ponteiro busca outro.
	dead bool
}

var _ ports.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{ledgers: make(map[string]*ledger)}
}

func (s *Storage) Acquire(_ context.Context, key string, now time.Time, rule domain.RateLimitRule) (int64, bool, error) {
	for {
		l := s.ledgerFor(key)

		l.mu.Lock()
		if l.dead {
			l.mu.Unlock()
			continue
		}

		l.prune(now, rule.Window)
		if len(l.hits) >= rule.Requests {
			count := int64(len(l.hits))
			l.mu.Unlock()
			return count, false, nil
		}

		l.hits = append(l.hits, now)
		count := int64(len(l.hits))
		l.mu.Unlock()
		return count, true, nil
	}
}

// Sweep remove chaves sem timestamps dentro da janela e devolve quantas foram removidas.
func (s *Storage) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, l := range s.ledgers {
		l.mu.Lock()
		l.prune(now, window)
		if len(l.hits) == 0 {
			l.dead = true
			delete(s.ledgers, key)
			removed++
		}
		l.mu.Unlock()
	}
	return removed
}

// RunJanitor chama Sweep a cada interval até o contexto ser cancelado.
func (s *Storage) RunJanitor(ctx context.Context, interval, window time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := s.Sweep(now, window)
			if logger != nil && removed > 0 {
				logger.Debug("rate limit ledger swept", slog.Int("removed", removed), slog.Int("remaining", s.Len()))
			}
		}
	}
}

// Len devolve o número de chaves rastreadas.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledgers)
}

func (s *Storage) ledgerFor(key string) *ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[key]
	if !ok {
		l = &ledger{}
		s.ledgers[key] = l
	}
	return l
}

// prune mantém apenas timestamps com now-ts < window.
func (l *ledger) prune(now time.Time, window time.Duration) {
	kept := l.hits[:0]
	for _, ts := range l.hits {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	l.hits = kept
}
