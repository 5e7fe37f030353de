package security

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"vpnarch/internal/logging"
)

// TLSVersion represents a TLS protocol version
type TLSVersion string

const (
	// TLSVersionAuto lets the Go standard library decide (currently TLS 1.2+)
	TLSVersionAuto TLSVersion = "auto"
	// TLSVersion12 forces TLS 1.2
	TLSVersion12 TLSVersion = "1.2"
	// TLSVersion13 forces TLS 1.3
	TLSVersion13 TLSVersion = "1.3"
)

// TLSConfig holds TLS configuration for HTTP clients
type TLSConfig struct {
	MinVersion       TLSVersion
	MaxVersion       TLSVersion
	HandshakeTimeout time.Duration
}

// DefaultTLSConfig returns the default secure TLS configuration
func DefaultTLSConfig() TLSConfig {
	return TLSConfig{
		MinVersion:       TLSVersion12,
		MaxVersion:       TLSVersion13,
		HandshakeTimeout: 10 * time.Second,
	}
}

// CreateTLSConfig creates a crypto/tls.Config from TLSConfig
func CreateTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
		MaxVersion: parseTLSVersion(cfg.MaxVersion),
	}

	if tlsCfg.MinVersion != 0 && tlsCfg.MinVersion < tls.VersionTLS12 {
		return nil, fmt.Errorf("minimum TLS version must be at least 1.2")
	}
	if tlsCfg.MaxVersion != 0 && tlsCfg.MinVersion > tlsCfg.MaxVersion {
		return nil, fmt.Errorf("minimum TLS version cannot be greater than maximum")
	}

	// TLS 1.3 suites are not configurable
	tlsCfg.CipherSuites = []uint16{
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	}
	return tlsCfg, nil
}

// parseTLSVersion converts a TLSVersion string to uint16
func parseTLSVersion(version TLSVersion) uint16 {
	switch version {
	case TLSVersion12:
		return tls.VersionTLS12
	case TLSVersion13:
		return tls.VersionTLS13
	case TLSVersionAuto:
		return 0
	default:
		return tls.VersionTLS12
	}
}

// NewStreamingHTTPClient creates an HTTP client for long-lived streaming
// responses. It has no overall timeout: only connection setup and, when
// headerTimeout is positive, the wait for response headers are bounded.
func NewStreamingHTTPClient(cfg TLSConfig, headerTimeout time.Duration) (*http.Client, error) {
	tlsCfg, err := CreateTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   cfg.HandshakeTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	logging.Debug("streaming http client ready",
		"min_tls", TLSVersionString(tlsCfg.MinVersion),
		"max_tls", TLSVersionString(tlsCfg.MaxVersion),
		"header_timeout", headerTimeout)
	return &http.Client{Transport: transport}, nil
}

// TLSVersionString returns a string representation of a TLS version number
func TLSVersionString(version uint16) string {
	switch version {
	case 0:
		return "auto"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}
