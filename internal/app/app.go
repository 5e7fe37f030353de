// Package app wires configuration, the generation backend and the guide
// accumulator to the terminal front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vpnarch/internal/audit"
	"vpnarch/internal/client"
	"vpnarch/internal/config"
	"vpnarch/internal/guide"
	"vpnarch/internal/logging"
	"vpnarch/internal/prefs"
	"vpnarch/internal/security"
	"vpnarch/internal/ui"
)

// ClientFactory opens the backend described by cfg.
type ClientFactory func(ctx context.Context, cfg *config.Config) (client.StreamingClient, error)

// Option configures an App.
type Option func(*App)

// WithClientFactory replaces the backend constructor, mainly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(a *App) { a.newClient = f }
}

// WithHistory records finished generations to logger.
func WithHistory(logger *audit.Logger) Option {
	return func(a *App) { a.history = logger }
}

// WithRetrierOptions passes extra options to every Retrier the app builds.
func WithRetrierOptions(opts ...client.RetrierOption) Option {
	return func(a *App) { a.retrierOpts = append(a.retrierOpts, opts...) }
}

// App is the main application.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cfg     *config.Config
	program *tea.Program

	service  *guide.Service
	acc      *guide.Accumulator
	history  *audit.Logger
	recorder *audit.Recorder

	newClient     ClientFactory
	retrierOpts   []client.RetrierOption
	signalCleanup func()
}

// New creates the application. A backend that cannot be configured is not
// fatal: the service stays empty and every generation fails until the
// config file is fixed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) *App {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		newClient: client.NewClient,
		service:   guide.NewService(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.history == nil && cfg.History.Enabled && cfg.Path != "" {
		history, err := audit.NewLogger(filepath.Dir(cfg.Path), cfg.History.MaxEntries)
		if err != nil {
			logging.Warn("generation history disabled", "error", err)
		}
		a.history = history
	}
	if a.history != nil {
		a.recorder = audit.NewRecorder(a.history, a.Model)
	}
	a.acc = guide.NewAccumulator(a.service, a.onSnapshot, guide.WithEpisodeStatus(func(epoch uint64) client.StatusCallback {
		return episodeStatus{app: a, epoch: epoch}
	}))

	if err := a.rebuildClient(cfg); err != nil {
		logging.Warn("generation backend unavailable", "error", err)
	}
	return a
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Model returns the model name of the active backend, or "" if none.
func (a *App) Model() string {
	return a.service.Model()
}

// rebuildClient replaces the backend with one built from cfg.
func (a *App) rebuildClient(cfg *config.Config) error {
	c, err := a.newClient(a.ctx, cfg)
	var next client.StreamingClient
	if err == nil {
		next = client.NewResilientClient(c, cfg, a.retrierOpts...)
	}

	if old := a.service.SetStreamer(next); old != nil {
		if cerr := old.Close(); cerr != nil {
			logging.Debug("error closing previous client", "error", cerr)
		}
	}
	if err != nil {
		return err
	}
	logging.Info("generation backend ready", "provider", cfg.API.GetProvider(), "model", next.Model())
	return nil
}

// onConfigChange applies a config file edit.
func (a *App) onConfigChange(cfg *config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	err := a.rebuildClient(cfg)
	if err != nil {
		logging.Warn("config reload left no usable backend", "error", err)
	}
	a.safeSendToProgram(ui.ConfigReloadedMsg{Model: a.service.Model(), Err: err})
}

// onSnapshot forwards accumulator changes to the TUI, if running.
func (a *App) onSnapshot(s guide.Snapshot) {
	a.recorder.Observe(s)
	a.safeSendToProgram(ui.GuideUpdatedMsg(s))
}

// History returns the generation history, or nil if it is disabled.
func (a *App) History() *audit.Logger {
	return a.history
}

// episodeStatus reports the retries of one episode. Notices carry the
// episode's epoch so the wizard can drop those of an abandoned episode.
type episodeStatus struct {
	app      *App
	epoch    uint64
	listener client.StatusCallback
}

func (s episodeStatus) OnRetry(attempt, maxAttempts int, delay time.Duration, reason string) {
	s.app.safeSendToProgram(ui.RetryNoticeMsg{Epoch: s.epoch, Attempt: attempt, MaxRetries: maxAttempts, Delay: delay, Reason: reason})
	if s.listener != nil {
		s.listener.OnRetry(attempt, maxAttempts, delay, reason)
	}
}

func (s episodeStatus) OnGiveUp(err error, exhausted bool) {
	logging.Warn("generation failed", "epoch", s.epoch, "error", security.RedactSecrets(err.Error()), "retries_exhausted", exhausted)
	if s.listener != nil {
		s.listener.OnGiveUp(err, exhausted)
	}
}

func (a *App) safeSendToProgram(msg tea.Msg) {
	a.mu.Lock()
	program := a.program
	a.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

// Run starts the interactive wizard and blocks until it exits.
func (a *App) Run() error {
	a.signalCleanup = a.setupSignalHandler()
	defer a.Close()

	cfg := a.Config()
	model := ui.NewModel(ui.Options{
		ModelName:         a.Model(),
		MarkdownRendering: cfg.UI.MarkdownRendering,
		GlamourStyle:      cfg.UI.GlamourStyle,
		CodeStyle:         cfg.UI.CodeStyle,
	}, ui.Actions{
		Generate: func(p prefs.Preferences) { a.acc.Start(a.ctx, p) },
		Reset:    a.acc.Reset,
	})

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(a.ctx),
	)
	a.mu.Lock()
	a.program = program
	a.mu.Unlock()

	if cfg.UI.WatchConfig && cfg.Path != "" {
		if err := config.Watch(a.ctx, cfg.Path, a.onConfigChange); err != nil {
			logging.Warn("config watch disabled", "path", cfg.Path, "error", err)
		}
	}

	_, err := program.Run()

	a.mu.Lock()
	a.program = nil
	a.mu.Unlock()

	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// Generate produces one guide without the TUI, streaming it through a
// StreamPrinter writing to out and status.
func (a *App) Generate(ctx context.Context, p prefs.Preferences, out, status io.Writer, opts ui.PrinterOptions) error {
	if err := p.Validate(); err != nil {
		return err
	}

	printer := ui.NewStreamPrinter(out, status, opts)
	acc := guide.NewAccumulator(a.service, func(s guide.Snapshot) {
		printer.Observe(s)
		a.recorder.Observe(s)
	}, guide.WithEpisodeStatus(func(epoch uint64) client.StatusCallback {
		return episodeStatus{app: a, epoch: epoch, listener: printer}
	}))
	ep := acc.Start(ctx, p)
	if err := ep.Wait(ctx); err != nil {
		// The episode fails itself once its stream sees ctx; wait for the
		// final snapshot so nothing is written after we return.
		<-ep.Done()
	}

	final := acc.Snapshot()
	if final.State == guide.Failed {
		return fmt.Errorf("guide generation failed: %w", final.Err)
	}
	return nil
}

// Close stops background work and releases the backend.
func (a *App) Close() {
	if a.signalCleanup != nil {
		a.signalCleanup()
		a.signalCleanup = nil
	}
	a.cancel()
	if old := a.service.SetStreamer(nil); old != nil {
		old.Close()
	}
	logging.Debug("app closed")
}
