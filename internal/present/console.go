// Package present renders surfaced notifications to the console.
//
// It is a stand-in for the toast layer of a real UI: it subscribes to
// the event bus like any other presentation consumer and has no
// privileged access to the pipeline. Output is rate limited so a
// misconfigured scenario cannot flood the terminal.
package present

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"rendertrace/internal/eventbus"
	"rendertrace/internal/notices"
	"rendertrace/internal/track"
	"rendertrace/pkg/logx"
)

type Config struct {
	Enabled    bool
	RatePerSec int // default 5
	ShowBadges bool
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	return c
}

type Service struct {
	log logx.Logger
	bus eventbus.Bus

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

func New(bus eventbus.Bus, cfg Config, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		log:     log,
		bus:     bus,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil || !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	ch, unsub := s.bus.SubscribeTopics(64, "notices.", "track.sequence")
	s.unsub = unsub
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				s.render(ev)
			}
		}
	}()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancel
	unsub := s.unsub
	s.cancel = nil
	s.unsub = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	unsub()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Apply swaps tunables at runtime; enable/disable requires a restart by
// the app (teardown order matters there).
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) render(ev eventbus.Event) {
	s.mu.Lock()
	lim := s.limiter
	badges := s.cfg.ShowBadges
	s.mu.Unlock()

	switch ev.Type {
	case "notices.appended":
		n, ok := ev.Data.(notices.Notification)
		if !ok {
			return
		}
		// Over the budget: drop the print, the store still has it.
		if !lim.Allow() {
			return
		}
		fields := []logx.Field{
			logx.String("unit", n.Primary.Unit),
			logx.String("reason", n.Primary.Reason.String()),
			logx.Uint64("render", n.Primary.Sequence),
		}
		if len(n.Batch) > 0 {
			fields = append(fields, logx.Int("batched", len(n.Batch)))
		}
		if d := diffSummary(n.Primary); d != "" {
			fields = append(fields, logx.String("diff", d))
		}
		s.log.Info("re-render", fields...)
	case "notices.removed":
		if !s.log.Enabled(logx.LevelDebug) {
			return
		}
		r, ok := ev.Data.(notices.Removal)
		if !ok {
			return
		}
		s.log.Debug("notification gone", logx.String("id", r.ID), logx.String("cause", string(r.Cause)))
	case "track.sequence":
		if !badges || !s.log.Enabled(logx.LevelDebug) {
			return
		}
		u, ok := ev.Data.(track.SequenceUpdate)
		if !ok {
			return
		}
		s.log.Debug("render badge", logx.String("unit", u.Unit), logx.Uint64("count", u.Sequence))
	}
}

func diffSummary(ev track.Event) string {
	parts := make([]string, 0, 4)
	for _, c := range ev.InternalDiffs {
		parts = append(parts, fmt.Sprintf("%s: %s → %s", c.Key, c.Previous, c.Current))
	}
	for _, c := range ev.ExternalDiffs {
		parts = append(parts, fmt.Sprintf("%s: %s → %s", c.Key, c.Previous, c.Current))
	}
	return strings.Join(parts, ", ")
}
