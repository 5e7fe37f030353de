package guide

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"vpnarch/internal/client"
	"vpnarch/internal/prefs"
)

func TestMain(m *testing.M) {
	// The opencensus worker is started at init by the genai dependency chain.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// generatorFunc adapts a function to Generator.
type generatorFunc func(ctx context.Context, p prefs.Preferences) (*client.Stream, error)

func (f generatorFunc) Generate(ctx context.Context, p prefs.Preferences) (*client.Stream, error) {
	return f(ctx, p)
}

func fixed(stream *client.Stream, err error) Generator {
	return generatorFunc(func(context.Context, prefs.Preferences) (*client.Stream, error) {
		return stream, err
	})
}

// recorder collects every snapshot passed to the observer.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) observe(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func wait(t *testing.T, ep *Episode) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ep.Wait(ctx); err != nil {
		t.Fatalf("episode %s did not finish: %v", ep.ID, err)
	}
}

func TestAccumulator_ConcatenatesFragmentsInOrder(t *testing.T) {
	rec := &recorder{}
	acc := NewAccumulator(fixed(client.StreamOf("## Step 1\n", "Install package.\n"), nil), rec.observe)

	ep := acc.Start(context.Background(), prefs.Default())
	wait(t, ep)

	got := acc.Snapshot()
	if got.State != Completed {
		t.Fatalf("state = %v, want completed", got.State)
	}
	if got.Text != "## Step 1\nInstall package.\n" {
		t.Errorf("text = %q", got.Text)
	}
	if got.EpisodeID != ep.ID || got.Epoch != ep.Epoch {
		t.Errorf("snapshot belongs to %s/%d, want %s/%d", got.EpisodeID, got.Epoch, ep.ID, ep.Epoch)
	}

	type step struct {
		State State
		Text  string
		Delta string
	}
	var steps []step
	for _, s := range rec.all() {
		steps = append(steps, step{s.State, s.Text, s.Delta})
	}
	want := []step{
		{Generating, "", ""},
		{Generating, "## Step 1\n", "## Step 1\n"},
		{Generating, "## Step 1\nInstall package.\n", "Install package.\n"},
		{Completed, "## Step 1\nInstall package.\n", ""},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulator_DropsEmptyFragments(t *testing.T) {
	chunks := make(chan client.Chunk, 4)
	chunks <- client.Chunk{Text: "a"}
	chunks <- client.Chunk{Text: ""}
	chunks <- client.Chunk{Text: "b"}
	close(chunks)

	rec := &recorder{}
	acc := NewAccumulator(fixed(client.NewStream(chunks, nil), nil), rec.observe)
	wait(t, acc.Start(context.Background(), prefs.Default()))

	if got := acc.Snapshot().Text; got != "ab" {
		t.Errorf("text = %q, want ab", got)
	}
	// start, two appends, completion
	if n := len(rec.all()); n != 4 {
		t.Errorf("notifications = %d, want 4", n)
	}
}

func TestAccumulator_EmptyStreamCompletes(t *testing.T) {
	acc := NewAccumulator(fixed(client.StreamOf(), nil), nil)
	wait(t, acc.Start(context.Background(), prefs.Default()))

	got := acc.Snapshot()
	if got.State != Completed || got.Text != "" {
		t.Errorf("got %v %q, want completed with empty text", got.State, got.Text)
	}
}

func TestAccumulator_SetupFailureShowsFailureMessage(t *testing.T) {
	cause := &client.BackendError{StatusCode: 403, Message: "API key not valid"}
	acc := NewAccumulator(fixed(nil, cause), nil)
	wait(t, acc.Start(context.Background(), prefs.Default()))

	got := acc.Snapshot()
	if got.State != Failed {
		t.Fatalf("state = %v, want failed", got.State)
	}
	if got.Text != FailureMessage {
		t.Errorf("text = %q, want failure message", got.Text)
	}
	if !errors.Is(got.Err, cause) {
		t.Errorf("Err = %v, want %v", got.Err, cause)
	}
}

func TestAccumulator_MidStreamErrorOverwritesPartialText(t *testing.T) {
	chunks := make(chan client.Chunk, 3)
	chunks <- client.Chunk{Text: "## Step 1\n"}
	chunks <- client.Chunk{Err: &client.BackendError{Message: "stream reset"}}
	close(chunks)

	acc := NewAccumulator(fixed(client.NewStream(chunks, nil), nil), nil)
	wait(t, acc.Start(context.Background(), prefs.Default()))

	got := acc.Snapshot()
	if got.State != Failed || got.Text != FailureMessage {
		t.Errorf("got %v %q, want failed with failure message", got.State, got.Text)
	}
}

func TestAccumulator_NilGeneratorFails(t *testing.T) {
	acc := NewAccumulator(nil, nil)
	wait(t, acc.Start(context.Background(), prefs.Default()))

	got := acc.Snapshot()
	if got.State != Failed || !client.IsConfigurationError(got.Err) {
		t.Errorf("got %v (%v), want failed with configuration error", got.State, got.Err)
	}
}

func TestAccumulator_RestartClearsPreviousGuide(t *testing.T) {
	streams := []*client.Stream{client.StreamOf("old guide"), client.StreamOf("new guide")}
	var mu sync.Mutex
	gen := generatorFunc(func(context.Context, prefs.Preferences) (*client.Stream, error) {
		mu.Lock()
		defer mu.Unlock()
		s := streams[0]
		streams = streams[1:]
		return s, nil
	})
	acc := NewAccumulator(gen, nil)

	first := acc.Start(context.Background(), prefs.Default())
	wait(t, first)
	if got := acc.Snapshot().Text; got != "old guide" {
		t.Fatalf("first text = %q", got)
	}

	second := acc.Start(context.Background(), prefs.Default())
	wait(t, second)
	got := acc.Snapshot()
	if got.Text != "new guide" {
		t.Errorf("second text = %q, want only the new guide", got.Text)
	}
	if second.Epoch != first.Epoch+1 || second.ID == first.ID {
		t.Errorf("episodes not distinct: %+v %+v", first, second)
	}
}

func TestAccumulator_IgnoresStaleEpisode(t *testing.T) {
	slow := make(chan client.Chunk)
	gen := generatorFunc(func(ctx context.Context, p prefs.Preferences) (*client.Stream, error) {
		if p.Protocol == prefs.OpenVPN {
			return client.NewStream(slow, nil), nil
		}
		return client.StreamOf("fresh guide"), nil
	})
	rec := &recorder{}
	acc := NewAccumulator(gen, rec.observe)

	stalePrefs := prefs.Preferences{Protocol: prefs.OpenVPN, ServerOS: prefs.Debian, ClientOS: prefs.Android}
	old := acc.Start(context.Background(), stalePrefs)
	slow <- client.Chunk{Text: "old part "}

	current := acc.Start(context.Background(), prefs.Default())
	wait(t, current)

	// The abandoned stream keeps producing; its output must be dropped.
	slow <- client.Chunk{Text: "late part"}
	slow <- client.Chunk{Err: errors.New("late failure")}
	close(slow)
	wait(t, old)

	got := acc.Snapshot()
	if got.State != Completed || got.Text != "fresh guide" {
		t.Errorf("got %v %q, want completed fresh guide", got.State, got.Text)
	}
	if got.Prefs != prefs.Default() {
		t.Errorf("prefs = %v, want %v", got.Prefs, prefs.Default())
	}
	for _, s := range rec.all() {
		if strings.Contains(s.Text, "late part") || s.Err != nil {
			t.Errorf("stale output reached observer: %+v", s)
		}
	}
}

func TestAccumulator_ResetReturnsToIdle(t *testing.T) {
	slow := make(chan client.Chunk)
	acc := NewAccumulator(fixed(client.NewStream(slow, nil), nil), nil)

	ep := acc.Start(context.Background(), prefs.Default())
	slow <- client.Chunk{Text: "partial"}
	acc.Reset()

	got := acc.Snapshot()
	if got.State != Idle || got.Text != "" || got.EpisodeID != "" {
		t.Errorf("after reset got %+v", got)
	}

	slow <- client.Chunk{Text: "ignored"}
	close(slow)
	wait(t, ep)

	if got := acc.Snapshot(); got.State != Idle || got.Text != "" {
		t.Errorf("abandoned episode changed state: %+v", got)
	}
}

func TestAccumulator_ContextCancelFailsEpisode(t *testing.T) {
	slow := make(chan client.Chunk)
	acc := NewAccumulator(fixed(client.NewStream(slow, nil), nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	ep := acc.Start(ctx, prefs.Default())
	cancel()
	wait(t, ep)

	got := acc.Snapshot()
	if got.State != Failed || !errors.Is(got.Err, context.Canceled) {
		t.Errorf("got %v (%v), want failed with context.Canceled", got.State, got.Err)
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{Idle: "idle", Generating: "generating", Completed: "completed", Failed: "failed", State(9): "unknown"}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), name)
		}
	}
}
