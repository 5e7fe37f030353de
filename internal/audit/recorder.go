package audit

import (
	"sync"
	"time"

	"vpnarch/internal/guide"
	"vpnarch/internal/logging"
	"vpnarch/internal/security"
)

// Recorder turns accumulator snapshots into history entries.
type Recorder struct {
	logger *Logger
	model  func() string
	now    func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewRecorder creates a recorder logging to logger. model reports the
// backend model at the time an episode finishes.
func NewRecorder(logger *Logger, model func() string) *Recorder {
	return &Recorder{
		logger: logger,
		model:  model,
		now:    time.Now,
		starts: make(map[string]time.Time),
	}
}

// Observe records finished episodes. It can be chained into a guide.Observer.
func (r *Recorder) Observe(s guide.Snapshot) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch s.State {
	case guide.Idle:
		clear(r.starts)
		return
	case guide.Generating:
		if _, ok := r.starts[s.EpisodeID]; !ok {
			// A new episode supersedes any unfinished one
			clear(r.starts)
			r.starts[s.EpisodeID] = r.now()
		}
		return
	case guide.Completed, guide.Failed:
	default:
		return
	}

	start, ok := r.starts[s.EpisodeID]
	if !ok {
		return
	}
	delete(r.starts, s.EpisodeID)

	entry := &Entry{
		ID:        s.EpisodeID,
		Timestamp: start,
		Protocol:  string(s.Prefs.Protocol),
		ServerOS:  string(s.Prefs.ServerOS),
		ClientOS:  string(s.Prefs.ClientOS),
		State:     s.State.String(),
		Duration:  r.now().Sub(start),
	}
	if r.model != nil {
		entry.Model = r.model()
	}
	if s.State == guide.Completed {
		entry.Bytes = len(s.Text)
	} else if s.Err != nil {
		entry.Error = security.RedactSecrets(s.Err.Error())
	}

	if err := r.logger.Log(entry); err != nil {
		logging.Warn("failed to record generation", "error", err)
	}
}
