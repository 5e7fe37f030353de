package prompt

import (
	"strings"
	"testing"

	"vpnarch/internal/prefs"

	"github.com/google/go-cmp/cmp"
)

func allPreferences() []prefs.Preferences {
	var out []prefs.Preferences
	for _, p := range prefs.ProtocolOptions() {
		for _, s := range prefs.ServerOptions() {
			for _, c := range prefs.ClientOptions() {
				out = append(out, prefs.Preferences{
					Protocol: prefs.Protocol(p.Value),
					ServerOS: prefs.ServerOS(s.Value),
					ClientOS: prefs.ClientOS(c.Value),
				})
			}
		}
	}
	return out
}

func TestBuild_IsDeterministic(t *testing.T) {
	all := allPreferences()
	if len(all) != 48 {
		t.Fatalf("expected 48 combinations, got %d", len(all))
	}
	for _, p := range all {
		first, second := Build(p), Build(p)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Build(%s) not deterministic (-first +second):\n%s", p, diff)
		}
	}
}

func TestBuild_DistinctPreferencesGiveDistinctPrompts(t *testing.T) {
	seen := make(map[string]prefs.Preferences)
	for _, p := range allPreferences() {
		req := Build(p)
		if prev, ok := seen[req.Prompt]; ok {
			t.Errorf("%s and %s produced the same prompt", prev, p)
		}
		seen[req.Prompt] = p
	}
}

func TestBuild_MentionsAllSelections(t *testing.T) {
	req := Build(prefs.Preferences{
		Protocol: prefs.WireGuard,
		ServerOS: prefs.Ubuntu,
		ClientOS: prefs.Windows,
	})

	for _, term := range []string{"WireGuard", "Ubuntu", "Windows"} {
		if !strings.Contains(req.Prompt, term) {
			t.Errorf("prompt does not mention %q:\n%s", term, req.Prompt)
		}
	}
}

func TestBuild_FixedParameters(t *testing.T) {
	req := Build(prefs.Default())

	if req.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", req.Temperature)
	}
	for _, rule := range []string{"先决条件", "免责声明", "Markdown", "中文", "Shell"} {
		if !strings.Contains(req.SystemInstruction, rule) {
			t.Errorf("system instruction missing %q", rule)
		}
	}
}

func TestBuild_OutlineOrderAndClientSection(t *testing.T) {
	req := Build(prefs.Preferences{
		Protocol: prefs.Tailscale,
		ServerOS: prefs.Docker,
		ClientOS: prefs.IOS,
	})

	want := []string{
		"1. 简介与先决条件",
		"2. 服务器安装命令",
		"3. 服务器配置",
		"4. 防火墙/网络设置",
		"5. 针对 iOS/iPadOS 的客户端配置",
		"6. 验证与故障排除",
	}
	last := -1
	for _, section := range want {
		idx := strings.Index(req.Prompt, section)
		if idx < 0 {
			t.Fatalf("prompt missing section %q:\n%s", section, req.Prompt)
		}
		if idx < last {
			t.Errorf("section %q out of order", section)
		}
		last = idx
	}

	if !strings.Contains(req.Prompt, "Tailscale (Easy)") || !strings.Contains(req.Prompt, "Docker Container") {
		t.Errorf("prompt should use display labels:\n%s", req.Prompt)
	}
}
