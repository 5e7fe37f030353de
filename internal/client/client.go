package client

import (
	"context"

	"vpnarch/internal/prompt"
)

// StreamingClient opens streaming generation calls against one backend.
type StreamingClient interface {
	// Stream opens a single streaming call. Failures while establishing the
	// call, including a failed first read, are returned here; failures after
	// the first fragment arrive as the final Chunk.
	Stream(ctx context.Context, req prompt.Request) (*Stream, error)

	// Model returns the model identifier used for every call.
	Model() string

	// Close releases the client.
	Close() error
}

// Stream is a lazy, single-pass sequence of text fragments. It cannot be
// restarted; open a new call instead.
type Stream struct {
	// Chunks delivers fragments in backend emission order and is closed
	// when the backend signals completion or after an error chunk.
	Chunks <-chan Chunk

	// Done is closed once the producer has exited.
	Done <-chan struct{}
}

// Chunk is one element of a Stream: either non-empty text or a terminal error.
type Chunk struct {
	Text string
	Err  error
}

// NewStream wraps a producer-owned channel. done may be nil.
func NewStream(chunks <-chan Chunk, done <-chan struct{}) *Stream {
	if done == nil {
		d := make(chan struct{})
		close(d)
		done = d
	}
	return &Stream{Chunks: chunks, Done: done}
}

// StreamOf returns a finished stream that yields the given fragments.
// Empty fragments are dropped.
func StreamOf(fragments ...string) *Stream {
	ch := make(chan Chunk, len(fragments))
	for _, f := range fragments {
		if f != "" {
			ch <- Chunk{Text: f}
		}
	}
	close(ch)
	return NewStream(ch, nil)
}

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}
