package guide

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vpnarch/internal/client"
	"vpnarch/internal/logging"
	"vpnarch/internal/prefs"
)

// FailureMessage replaces the guide text whenever a generation fails.
const FailureMessage = "与 AI 通信时发生错误。请检查您的 API 密钥并重试。"

// State is the lifecycle state of the guide buffer.
type State int

const (
	Idle State = iota
	Generating
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the accumulator after one change.
type Snapshot struct {
	EpisodeID string
	Epoch     uint64
	State     State
	Prefs     prefs.Preferences
	Text      string // full guide text so far, or FailureMessage
	Delta     string // fragment appended by this change, if any
	Err       error  // underlying cause when State is Failed
}

// Observer receives snapshots in the order the changes were applied. It is
// called with the notification lock held and must not call Start or Reset.
type Observer func(Snapshot)

// Generator opens the fragment stream for one set of preferences.
type Generator interface {
	Generate(ctx context.Context, p prefs.Preferences) (*client.Stream, error)
}

// Episode is one generation started by Accumulator.Start.
type Episode struct {
	ID    string
	Epoch uint64
	Prefs prefs.Preferences

	done chan struct{}
}

// Done is closed once the episode's stream has been fully consumed.
func (e *Episode) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the episode finishes or ctx is done.
func (e *Episode) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Accumulator turns fragment streams into the guide text shown to the user.
// Only the most recently started episode may change the buffer; anything
// still arriving for older epochs is drained and dropped.
type Accumulator struct {
	gen      Generator
	observer Observer
	statusOf func(epoch uint64) client.StatusCallback

	// notifyMu orders mutations together with their notifications.
	notifyMu sync.Mutex

	mu        sync.Mutex
	epoch     uint64
	episodeID string
	state     State
	prefs     prefs.Preferences
	buf       strings.Builder
	err       error
}

// AccumulatorOption configures an Accumulator.
type AccumulatorOption func(*Accumulator)

// WithEpisodeStatus gives every episode its own retry status callback,
// built from the episode's epoch, so notices of an abandoned episode can be
// told apart from the current one.
func WithEpisodeStatus(fn func(epoch uint64) client.StatusCallback) AccumulatorOption {
	return func(a *Accumulator) { a.statusOf = fn }
}

// NewAccumulator creates an idle accumulator. gen and observer may be nil.
func NewAccumulator(gen Generator, observer Observer, opts ...AccumulatorOption) *Accumulator {
	a := &Accumulator{gen: gen, observer: observer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns the current state.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked("")
}

// Start begins a new episode for p, invalidating any episode in flight.
// The stream is consumed on a new goroutine bound to ctx.
func (a *Accumulator) Start(ctx context.Context, p prefs.Preferences) *Episode {
	a.notifyMu.Lock()
	a.mu.Lock()
	a.epoch++
	a.episodeID = uuid.NewString()
	a.state = Generating
	a.prefs = p
	a.buf.Reset()
	a.err = nil

	ep := &Episode{ID: a.episodeID, Epoch: a.epoch, Prefs: p, done: make(chan struct{})}
	snap := a.snapshotLocked("")
	a.mu.Unlock()
	a.notify(snap)
	a.notifyMu.Unlock()

	logging.Info("generation started", "episode", ep.ID, "epoch", ep.Epoch, "prefs", p.String())

	if a.statusOf != nil {
		if cb := a.statusOf(ep.Epoch); cb != nil {
			ctx = client.ContextWithStatus(ctx, cb)
		}
	}
	go a.run(ctx, ep)
	return ep
}

// Reset returns to Idle and abandons any episode in flight.
func (a *Accumulator) Reset() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	a.epoch++
	a.episodeID = ""
	a.state = Idle
	a.prefs = prefs.Preferences{}
	a.buf.Reset()
	a.err = nil
	snap := a.snapshotLocked("")
	a.mu.Unlock()
	a.notify(snap)
}

func (a *Accumulator) run(ctx context.Context, ep *Episode) {
	defer close(ep.done)

	gen := a.gen
	if gen == nil {
		a.fail(ep, &client.ConfigurationError{Message: "no generation backend configured"})
		return
	}

	stream, err := gen.Generate(ctx, ep.Prefs)
	if err != nil {
		a.fail(ep, err)
		return
	}
	defer func() { <-stream.Done }()

	stale := false
	for {
		select {
		case <-ctx.Done():
			a.fail(ep, ctx.Err())
			return

		case chunk, ok := <-stream.Chunks:
			if !ok {
				if !stale {
					a.complete(ep)
				}
				return
			}
			if stale {
				continue
			}
			if chunk.Err != nil {
				a.fail(ep, chunk.Err)
				return
			}
			if chunk.Text == "" {
				continue
			}
			if !a.apply(ep, func() string {
				a.buf.WriteString(chunk.Text)
				return chunk.Text
			}) {
				stale = true
				logging.Debug("draining stale stream", "episode", ep.ID, "epoch", ep.Epoch)
			}
		}
	}
}

func (a *Accumulator) complete(ep *Episode) {
	if a.apply(ep, func() string {
		a.state = Completed
		return ""
	}) {
		logging.Info("generation completed", "episode", ep.ID, "bytes", len(a.Snapshot().Text))
	}
}

func (a *Accumulator) fail(ep *Episode, err error) {
	if a.apply(ep, func() string {
		a.state = Failed
		a.err = err
		a.buf.Reset()
		a.buf.WriteString(FailureMessage)
		return ""
	}) {
		logging.Error("generation failed", "episode", ep.ID, "error", err)
	}
}

// apply runs mutate if ep is still the current, unfinished episode and
// notifies the observer. It reports whether the change was applied.
func (a *Accumulator) apply(ep *Episode, mutate func() string) bool {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	if ep.Epoch != a.epoch || a.state != Generating {
		a.mu.Unlock()
		return false
	}
	delta := mutate()
	snap := a.snapshotLocked(delta)
	a.mu.Unlock()

	a.notify(snap)
	return true
}

func (a *Accumulator) snapshotLocked(delta string) Snapshot {
	return Snapshot{
		EpisodeID: a.episodeID,
		Epoch:     a.epoch,
		State:     a.state,
		Prefs:     a.prefs,
		Text:      a.buf.String(),
		Delta:     delta,
		Err:       a.err,
	}
}

func (a *Accumulator) notify(snap Snapshot) {
	if a.observer != nil {
		a.observer(snap)
	}
}
