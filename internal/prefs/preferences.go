// Package prefs holds the three user choices a guide is generated for.
package prefs

import (
	"fmt"
	"strings"
)

// Protocol is the VPN protocol to build.
type Protocol string

const (
	WireGuard   Protocol = "WireGuard"
	OpenVPN     Protocol = "OpenVPN"
	Tailscale   Protocol = "Tailscale"
	Shadowsocks Protocol = "Shadowsocks"
)

// ServerOS is the operating system hosting the VPN server.
type ServerOS string

const (
	Ubuntu ServerOS = "Ubuntu"
	Debian ServerOS = "Debian"
	Docker ServerOS = "Docker"
)

// ClientOS is the primary device that connects to the VPN.
type ClientOS string

const (
	Windows ClientOS = "Windows"
	MacOS   ClientOS = "macOS"
	IOS     ClientOS = "iOS"
	Android ClientOS = "Android"
)

// Option describes one selectable value as shown on a selection card.
type Option struct {
	Value       string
	Title       string
	Description string
}

var protocolOptions = []Option{
	{string(WireGuard), "WireGuard", "现代、极速且精简。适合大多数追求性能和简洁的用户。"},
	{string(OpenVPN), "OpenVPN", "行业标准的传统协议。配置高度灵活，即便在严格的防火墙下也能工作。"},
	{string(Tailscale), "Tailscale (简易)", "基于 WireGuard 的零配置网格 VPN。设置最简单，无需端口转发。"},
	{string(Shadowsocks), "Shadowsocks", "一种安全的 Socks5 代理，专为保护网络流量而设计。轻量且高效。"},
}

var serverOptions = []Option{
	{string(Ubuntu), "Ubuntu 22.04/24.04", "VPS 最流行的 Linux 发行版。推荐初学者使用。"},
	{string(Debian), "Debian 11/12", "稳定、轻量，作为服务器极其可靠。"},
	{string(Docker), "Docker Container", "隔离环境。非常适合保持宿主系统清洁。"},
}

var clientOptions = []Option{
	{string(Windows), "Windows", "Windows 10/11 台式机或笔记本。"},
	{string(MacOS), "macOS", "MacBook Air, Pro 或 iMac。"},
	{string(IOS), "iOS / iPadOS", "iPhone 或 iPad 移动设备。"},
	{string(Android), "Android", "Android 手机或平板。"},
}

// ProtocolOptions returns the selectable protocols in display order.
func ProtocolOptions() []Option { return append([]Option(nil), protocolOptions...) }

// ServerOptions returns the selectable server systems in display order.
func ServerOptions() []Option { return append([]Option(nil), serverOptions...) }

// ClientOptions returns the selectable client devices in display order.
func ClientOptions() []Option { return append([]Option(nil), clientOptions...) }

// Label is the display name, also used in the prompt.
func (p Protocol) Label() string {
	if p == Tailscale {
		return "Tailscale (Easy)"
	}
	return string(p)
}

// Label is the display name, also used in the prompt.
func (s ServerOS) Label() string {
	switch s {
	case Ubuntu:
		return "Ubuntu 22.04/24.04"
	case Debian:
		return "Debian 11/12"
	case Docker:
		return "Docker Container"
	}
	return string(s)
}

// Label is the display name, also used in the prompt.
func (c ClientOS) Label() string {
	if c == IOS {
		return "iOS/iPadOS"
	}
	return string(c)
}

// Preferences is a snapshot of the user's choices. It is a plain value:
// a generation keeps its own copy, so edits made in the wizard afterwards
// never reach a running generation.
type Preferences struct {
	Protocol Protocol
	ServerOS ServerOS
	ClientOS ClientOS
}

// Default returns the wizard's initial selection.
func Default() Preferences {
	return Preferences{Protocol: WireGuard, ServerOS: Ubuntu, ClientOS: Windows}
}

func (p Preferences) String() string {
	return fmt.Sprintf("%s/%s/%s", p.Protocol, p.ServerOS, p.ClientOS)
}

// Validate reports whether every field holds a known value.
func (p Preferences) Validate() error {
	if _, err := ParseProtocol(string(p.Protocol)); err != nil {
		return err
	}
	if _, err := ParseServerOS(string(p.ServerOS)); err != nil {
		return err
	}
	if _, err := ParseClientOS(string(p.ClientOS)); err != nil {
		return err
	}
	return nil
}

// ParseProtocol parses a protocol name case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	v, err := parse(s, protocolOptions, "protocol", nil)
	return Protocol(v), err
}

// ParseServerOS parses a server OS name case-insensitively.
func ParseServerOS(s string) (ServerOS, error) {
	v, err := parse(s, serverOptions, "server OS", nil)
	return ServerOS(v), err
}

// ParseClientOS parses a client OS name case-insensitively. "ipados" and
// "mac" are accepted as aliases.
func ParseClientOS(s string) (ClientOS, error) {
	aliases := map[string]ClientOS{"ipados": IOS, "mac": MacOS, "osx": MacOS}
	v, err := parse(s, clientOptions, "client OS", func(key string) (string, bool) {
		c, ok := aliases[key]
		return string(c), ok
	})
	return ClientOS(v), err
}

func parse(s string, options []Option, kind string, alias func(string) (string, bool)) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, opt := range options {
		if strings.ToLower(opt.Value) == key {
			return opt.Value, nil
		}
	}
	if alias != nil {
		if v, ok := alias(key); ok {
			return v, nil
		}
	}

	valid := make([]string, len(options))
	for i, opt := range options {
		valid[i] = opt.Value
	}
	return "", fmt.Errorf("unknown %s %q (valid: %s)", kind, s, strings.Join(valid, ", "))
}
