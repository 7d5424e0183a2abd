package simulate

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"rendertrace/internal/dispatch"
	"rendertrace/internal/track"
	"rendertrace/pkg/logx"
)

var ErrUnknownScenario = errors.New("unknown scenario")

type Entry struct {
	Name     string
	Schedule string // cron spec; empty = run once at Start
}

type Config struct {
	Entries []Entry
	// SuppressHold is how long chrome-toggle keeps the gate closed after
	// its pass; it must outlive the batching window.
	SuppressHold time.Duration
}

// Service runs scripted render scenarios, once or on cron schedules.
type Service struct {
	log  logx.Logger
	reg  *track.Registry
	gate *dispatch.Gate

	scenarios map[string]scenario

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	parser  cron.Parser
	stopped bool

	suppressHold time.Duration

	// simulated tree state
	clicks   int
	query    string
	darkMode bool
}

func New(reg *track.Registry, gate *dispatch.Gate, cfg Config, log logx.Logger) *Service {
	if cfg.SuppressHold <= 0 {
		cfg.SuppressHold = dispatch.DefaultWindow * 2
	}
	return &Service{
		log:       log,
		reg:       reg,
		gate:      gate,
		cfg:       cfg,
		scenarios: builtins(),
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:       cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		suppressHold: cfg.SuppressHold,
	}
}

// Run executes one scenario synchronously.
func (s *Service) Run(name string) error {
	sc, ok := s.scenarios[strings.TrimSpace(name)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	s.log.Debug("scenario running", logx.String("scenario", sc.name))
	sc.run(s)
	return nil
}

// Start runs every unscheduled entry once and registers the scheduled
// ones with cron.
func (s *Service) Start() {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return
	}
	cfg := s.cfg
	c := cron.New(cron.WithParser(s.parser))
	s.c = c
	s.stopped = false
	s.mu.Unlock()

	for _, e := range cfg.Entries {
		e := e
		if strings.TrimSpace(e.Schedule) == "" {
			go s.runGuarded(e.Name)
			continue
		}
		if _, err := c.AddFunc(e.Schedule, func() { s.runGuarded(e.Name) }); err != nil {
			s.log.Warn("scenario schedule rejected",
				logx.String("scenario", e.Name),
				logx.String("schedule", e.Schedule),
				logx.Err(err),
			)
			continue
		}
		s.log.Info("scenario scheduled",
			logx.String("scenario", e.Name),
			logx.String("schedule", e.Schedule),
			logx.String("desc", scenarioDesc(e.Name)),
		)
	}
	c.Start()
}

// Stop halts the cron runner and waits for in-flight scenario runs.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.stopped = true
	s.mu.Unlock()
	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// Apply swaps the scenario set at runtime by restarting the cron runner.
func (s *Service) Apply(cfg Config) {
	if cfg.SuppressHold <= 0 {
		cfg.SuppressHold = dispatch.DefaultWindow * 2
	}
	s.mu.Lock()
	s.cfg = cfg
	s.suppressHold = cfg.SuppressHold
	running := s.c != nil
	s.mu.Unlock()

	if running {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
		s.Start()
	}
}

func (s *Service) runGuarded(name string) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scenario",
				logx.String("scenario", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	if err := s.Run(name); err != nil {
		s.log.Warn("scenario failed", logx.String("scenario", name), logx.Err(err))
	}
}

// ValidateEntries rejects unknown scenario names and unparsable cron
// specs before they are committed by a config reload.
func (s *Service) ValidateEntries(entries []Entry) error {
	for i, e := range entries {
		if _, ok := s.scenarios[strings.TrimSpace(e.Name)]; !ok {
			return fmt.Errorf("scenarios[%d]: %w: %q", i, ErrUnknownScenario, e.Name)
		}
		if spec := strings.TrimSpace(e.Schedule); spec != "" {
			if _, err := s.parser.Parse(spec); err != nil {
				return fmt.Errorf("scenarios[%d]: invalid schedule %q: %w", i, e.Schedule, err)
			}
		}
	}
	return nil
}
