package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultDomain = "localhost:8080"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

// Config holds the member-side configuration.
type Config struct {
	// Domain is the hub's host[:port]
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// ICE servers for WebRTC. TURN is optional.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN relay candidates.
	ForceRelay bool
}

// Options carries CLI flag overrides.
type Options struct {
	ConfigFile string
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Insecure   bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Config file, when one is given
// 4. Defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetDefault("domain", DefaultDomain)
	v.SetDefault("stun_server", DefaultSTUN)
	v.SetDefault("turn_server", "")
	v.SetDefault("turn_username", "")
	v.SetDefault("turn_password", "")
	v.SetDefault("force_relay", false)
	v.SetDefault("insecure", false)

	// Prefixed names win over the bare ones.
	_ = v.BindEnv("domain", "STUDYROOM_DOMAIN", "DOMAIN")
	_ = v.BindEnv("stun_server", "STUDYROOM_STUN_SERVER", "STUN_SERVER")
	_ = v.BindEnv("turn_server", "STUDYROOM_TURN_SERVER", "TURN_SERVER")
	_ = v.BindEnv("turn_username", "STUDYROOM_TURN_USERNAME", "TURN_USERNAME")
	_ = v.BindEnv("turn_password", "STUDYROOM_TURN_PASSWORD", "TURN_PASSWORD")
	_ = v.BindEnv("force_relay", "STUDYROOM_FORCE_RELAY")
	_ = v.BindEnv("insecure", "STUDYROOM_INSECURE")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	override(v, "domain", opts.Domain)
	override(v, "stun_server", opts.STUNServer)
	override(v, "turn_server", opts.TURNServer)
	override(v, "turn_username", opts.TURNUser)
	override(v, "turn_password", opts.TURNPass)
	if opts.ForceRelay {
		v.Set("force_relay", true)
	}
	if opts.Insecure {
		v.Set("insecure", true)
	}

	domain := strings.TrimSuffix(v.GetString("domain"), "/")
	if domain == "" {
		return nil, fmt.Errorf("config: domain must not be empty")
	}

	scheme := "wss"
	if v.GetBool("insecure") || isLoopback(domain) {
		scheme = "ws"
	}

	return &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", scheme, domain),
		STUNServer:   v.GetString("stun_server"),
		TURNServer:   v.GetString("turn_server"),
		TURNUser:     v.GetString("turn_username"),
		TURNPass:     v.GetString("turn_password"),
		ForceRelay:   v.GetBool("force_relay"),
	}, nil
}

func override(v *viper.Viper, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func isLoopback(domain string) bool {
	host := domain
	if h, _, err := net.SplitHostPort(domain); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// GetSessionLink returns the web app URL for a session.
func (c *Config) GetSessionLink(sessionID string) string {
	scheme := "https"
	if strings.HasPrefix(c.WebSocketURL, "ws://") {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/session/%s", scheme, c.Domain, sessionID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turns:"), "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
