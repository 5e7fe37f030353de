package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"vpnarch/internal/client"
	"vpnarch/internal/guide"
	"vpnarch/internal/prefs"
)

var _ client.StatusCallback = (*StreamPrinter)(nil)

func runEpisode(p *StreamPrinter, epoch uint64, fragments []string, final guide.State) {
	pr := prefs.Default()
	p.Observe(guide.Snapshot{Epoch: epoch, State: guide.Generating, Prefs: pr})
	var text string
	for _, f := range fragments {
		text += f
		p.Observe(guide.Snapshot{Epoch: epoch, State: guide.Generating, Prefs: pr, Text: text, Delta: f})
	}
	switch final {
	case guide.Completed:
		p.Observe(guide.Snapshot{Epoch: epoch, State: guide.Completed, Prefs: pr, Text: text})
	case guide.Failed:
		p.Observe(guide.Snapshot{Epoch: epoch, State: guide.Failed, Prefs: pr, Text: guide.FailureMessage, Err: errors.New("boom")})
	}
}

func TestStreamPrinter_NoColorWritesFragmentsVerbatim(t *testing.T) {
	var out, status bytes.Buffer
	p := NewStreamPrinter(&out, &status, PrinterOptions{NoColor: true})

	runEpisode(p, 1, []string{"## Step 1\n", "Install package.\n"}, guide.Completed)

	if out.String() != "## Step 1\nInstall package.\n" {
		t.Errorf("out = %q", out.String())
	}
	if !strings.Contains(status.String(), "WireGuard 搭建指南") {
		t.Errorf("status missing header: %q", status.String())
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v", p.Err())
	}
}

func TestStreamPrinter_HeaderUsesDisplayLabels(t *testing.T) {
	var out, status bytes.Buffer
	p := NewStreamPrinter(&out, &status, PrinterOptions{NoColor: true})

	pr := prefs.Preferences{Protocol: prefs.Tailscale, ServerOS: prefs.Docker, ClientOS: prefs.IOS}
	p.Observe(guide.Snapshot{Epoch: 1, State: guide.Generating, Prefs: pr})

	for _, want := range []string{"Tailscale (Easy) 搭建指南", "服务器: Docker Container • 客户端: iOS/iPadOS"} {
		if !strings.Contains(status.String(), want) {
			t.Errorf("status missing %q: %q", want, status.String())
		}
	}
}

func TestStreamPrinter_StreamsCodeBlocks(t *testing.T) {
	var out, status bytes.Buffer
	p := NewStreamPrinter(&out, &status, PrinterOptions{Width: 40})

	runEpisode(p, 1, []string{"Run:\n```bash\nsudo wg", "-quick up wg0\n```\n", "tail"}, guide.Completed)

	got := out.String()
	for _, want := range []string{"Run:\n", "── bash", "wg0", "tail"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestStreamPrinter_RenderWaitsForCompletion(t *testing.T) {
	var out, status bytes.Buffer
	p := NewStreamPrinter(&out, &status, PrinterOptions{Render: true, NoColor: true})

	pr := prefs.Default()
	p.Observe(guide.Snapshot{Epoch: 1, State: guide.Generating, Prefs: pr})
	p.Observe(guide.Snapshot{Epoch: 1, State: guide.Generating, Prefs: pr, Text: "# Title\n", Delta: "# Title\n"})
	if out.Len() != 0 {
		t.Fatalf("rendered before completion: %q", out.String())
	}
	p.Observe(guide.Snapshot{Epoch: 1, State: guide.Completed, Prefs: pr, Text: "# Title\n"})
	if !strings.Contains(out.String(), "Title") {
		t.Errorf("out = %q", out.String())
	}
}

func TestStreamPrinter_FailureGoesToStatus(t *testing.T) {
	var out, status bytes.Buffer
	p := NewStreamPrinter(&out, &status, PrinterOptions{NoColor: true})

	p.OnRetry(1, 3, 2*time.Second, "503 overloaded")
	runEpisode(p, 1, nil, guide.Failed)

	if !strings.Contains(status.String(), "(1/3)") {
		t.Errorf("retry notice missing: %q", status.String())
	}
	if !strings.Contains(status.String(), guide.FailureMessage) {
		t.Errorf("failure message missing: %q", status.String())
	}
	if p.Err() == nil {
		t.Error("Err() = nil after failure")
	}
}
