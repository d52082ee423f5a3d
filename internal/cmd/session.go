package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sathwikbalu/Zenith-Study/internal/config"
	"github.com/sathwikbalu/Zenith-Study/internal/mesh"
	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
	"github.com/sathwikbalu/Zenith-Study/internal/ui"
)

const replyTimeout = 10 * time.Second

var errNoReply = errors.New("hub did not answer in time")

// connectionFlags are shared by every command that talks to a hub.
type connectionFlags struct {
	configFile string
	domain     string
	stun       string
	turn       string
	turnUser   string
	turnPass   string
	relay      bool
	insecure   bool
	name       string
	user       string
	tutor      bool
}

func (f *connectionFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.configFile, "config", "c", "", "Config file (yaml, json or toml)")
	c.Flags().StringVarP(&f.domain, "domain", "d", "", "Hub domain, host[:port]")
	c.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	c.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server")
	c.Flags().StringVar(&f.turnUser, "turn-user", "", "TURN username")
	c.Flags().StringVar(&f.turnPass, "turn-pass", "", "TURN password")
	c.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
	c.Flags().BoolVar(&f.insecure, "insecure", false, "Use ws:// instead of wss://")
	c.Flags().StringVarP(&f.name, "name", "n", "", "Display name (defaults to the hostname)")
	c.Flags().StringVar(&f.user, "user", "", "User id (defaults to a random id)")
	c.Flags().BoolVar(&f.tutor, "tutor", false, "Join as tutor")
}

func (f *connectionFlags) options() config.Options {
	return config.Options{
		ConfigFile: f.configFile,
		Domain:     f.domain,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
		Insecure:   f.insecure,
	}
}

func (f *connectionFlags) identity(sessionID string) mesh.Identity {
	name := f.name
	if name == "" {
		name, _ = os.Hostname()
	}
	if name == "" {
		name = "guest"
	}
	user := f.user
	if user == "" {
		user = uuid.NewString()
	}
	return mesh.Identity{SessionID: sessionID, UserID: user, UserName: name, IsTutor: f.tutor}
}

type ConnectionContext struct {
	Hub    *signaling.RemoteHub
	Config *config.Config
}

func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	hub, err := signaling.Dial(ctx, cfg.WebSocketURL)
	if err != nil {
		return nil, mesh.NewError("connect to hub", err)
	}
	return &ConnectionContext{Hub: hub, Config: cfg}, nil
}

func (c *ConnectionContext) Close() {
	if c.Hub != nil {
		c.Hub.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, mesh.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// connect loads config and dials the hub behind a spinner.
func connect(ctx context.Context, flags *connectionFlags) (*ConnectionContext, error) {
	cfg, err := LoadConfig(flags.options())
	if err != nil {
		return nil, err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to hub...")
	conn, err := NewConnectionContext(ctx, cfg)
	stopSpinner()
	return conn, err
}

// waitFor reads hub messages until one of type T matching accept arrives.
// A hub error message ends the wait.
func waitFor[T signaling.HubMessage](ctx context.Context, hub *signaling.RemoteHub, accept func(T) bool) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return zero, errNoReply
		case msg, ok := <-hub.Incoming():
			if !ok {
				return zero, signaling.ErrConnectionClosed
			}
			if e, isErr := msg.(*signaling.ErrorMessage); isErr {
				return zero, fmt.Errorf("hub: %s", e.Message)
			}
			if m, match := msg.(T); match && (accept == nil || accept(m)) {
				return m, nil
			}
		}
	}
}

// parseSessionInput accepts a bare session id or a session link.
func parseSessionInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}

	if strings.Contains(input, "://") || strings.Contains(input, ".") {
		sessionID, err := extractSessionIDFromURL(input)
		if err != nil {
			return "", err
		}
		return sessionID, nil
	}

	return input, nil
}

func extractSessionIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", mesh.NewError("parse URL", err)
	}

	path := strings.TrimSuffix(parsedURL.Path, "/")
	parts := strings.Split(path, "/")

	for i, part := range parts {
		if part == "session" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract session ID from URL: %s", urlStr)
}
