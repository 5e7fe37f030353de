package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"vpnarch/internal/guide"
)

// PrinterOptions configure a StreamPrinter.
type PrinterOptions struct {
	Render       bool   // render the finished guide with glamour instead of streaming it
	NoColor      bool   // write fragments verbatim
	GlamourStyle string // used with Render
	CodeStyle    string // chroma style for streamed code blocks
	Width        int
}

// StreamPrinter writes a guide to out as it is generated and progress
// notices to status. It is a guide.Observer and a client.StatusCallback.
type StreamPrinter struct {
	out    io.Writer
	status io.Writer
	opts   PrinterOptions
	styles *Styles
	parser *MarkdownStreamParser

	mu    sync.Mutex
	epoch uint64
	err   error
}

// NewStreamPrinter creates a printer.
func NewStreamPrinter(out, status io.Writer, opts PrinterOptions) *StreamPrinter {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	styles := DefaultStyles()
	if opts.NoColor {
		styles = PlainStyles()
	}
	return &StreamPrinter{
		out:    out,
		status: status,
		opts:   opts,
		styles: styles,
		parser: NewMarkdownStreamParser(styles, opts.CodeStyle),
	}
}

// Observe handles one accumulator snapshot.
func (p *StreamPrinter) Observe(s guide.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Epoch != p.epoch {
		p.epoch = s.Epoch
		p.parser.Reset()
		p.err = nil
	}

	switch s.State {
	case guide.Generating:
		if s.Delta == "" {
			if s.Text == "" {
				fmt.Fprintln(p.status, p.styles.GuideHeader.Render(fmt.Sprintf("%s 搭建指南", s.Prefs.Protocol.Label())))
				fmt.Fprintln(p.status, p.styles.Summary.Render(fmt.Sprintf("服务器: %s • 客户端: %s", s.Prefs.ServerOS.Label(), s.Prefs.ClientOS.Label())))
				fmt.Fprintln(p.status, p.styles.Loading.Render(loadingText))
			}
			return
		}
		if p.opts.Render {
			return
		}
		if p.opts.NoColor {
			io.WriteString(p.out, s.Delta)
			return
		}
		for _, block := range p.parser.Feed(s.Delta) {
			io.WriteString(p.out, p.parser.RenderBlock(block, p.opts.Width))
		}

	case guide.Completed:
		if p.opts.Render {
			p.writeRendered(s.Text)
			return
		}
		if p.opts.NoColor {
			return
		}
		for _, block := range p.parser.Flush() {
			io.WriteString(p.out, p.parser.RenderBlock(block, p.opts.Width))
		}

	case guide.Failed:
		p.err = s.Err
		p.parser.Reset()
		fmt.Fprintln(p.status)
		fmt.Fprintln(p.status, p.styles.Error.Render(s.Text)+failureDetails(p.styles, s.Err))
	}
}

func (p *StreamPrinter) writeRendered(text string) {
	style := p.opts.GlamourStyle
	if style == "" || p.opts.NoColor {
		style = "notty"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(p.opts.Width),
	)
	if err == nil {
		if out, rerr := renderer.Render(text); rerr == nil {
			io.WriteString(p.out, out)
			return
		}
	}
	io.WriteString(p.out, text)
}

// Err returns the cause of the last failed episode, if any.
func (p *StreamPrinter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// OnRetry prints a retry notice.
func (p *StreamPrinter) OnRetry(attempt, maxAttempts int, delay time.Duration, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.status, p.styles.Warning.Render(
		fmt.Sprintf("服务器繁忙 (%s)，%.1f 秒后重试 (%d/%d)", reason, delay.Seconds(), attempt, maxAttempts)))
}

// OnGiveUp is a no-op; the failure is reported through Observe.
func (p *StreamPrinter) OnGiveUp(err error, exhausted bool) {}
