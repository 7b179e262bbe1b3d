package nats

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Defaults for the embedded server. The port differs from the stock
// NATS port so a system broker can run next to the daemon.
const (
	DefaultPort         = 4223
	DefaultHost         = "127.0.0.1"
	DefaultName         = "feedbackd"
	DefaultReadyTimeout = 5 * time.Second
	// Trigger requests are a few hundred bytes.
	DefaultMaxPayload = 64 * 1024
)

// ErrNotReady is returned when the embedded server does not accept
// connections within the ready timeout.
var ErrNotReady = errors.New("NATS server not ready")

// ServerOptions configures the embedded NATS server. Port -1 picks a
// random free port.
type ServerOptions struct {
	Port         int
	Host         string
	Name         string
	ReadyTimeout time.Duration
	MaxPayload   int32
	Logger       *slog.Logger
}

// DefaultServerOptions returns the defaults for the embedded server.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Port:         DefaultPort,
		Host:         DefaultHost,
		Name:         DefaultName,
		ReadyTimeout: DefaultReadyTimeout,
		MaxPayload:   DefaultMaxPayload,
	}
}

func (o ServerOptions) withDefaults() ServerOptions {
	d := DefaultServerOptions()
	if o.Port == 0 {
		o.Port = d.Port
	}
	if o.Host == "" {
		o.Host = d.Host
	}
	if o.Name == "" {
		o.Name = d.Name
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = d.ReadyTimeout
	}
	if o.MaxPayload <= 0 {
		o.MaxPayload = d.MaxPayload
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Server is the broker clients and the daemon's service meet on.
type Server struct {
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewServer creates an embedded server. Nothing listens until Start.
func NewServer(opts ServerOptions) *Server {
	opts = opts.withDefaults()
	return &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "nats-server"),
	}
}

// Start listens and blocks until the server accepts connections.
func (s *Server) Start() error {
	ns, err := server.NewServer(&server.Options{
		Host:           s.opts.Host,
		Port:           s.opts.Port,
		ServerName:     s.opts.Name,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
		MaxPayload:     s.opts.MaxPayload,
	})
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(s.opts.ReadyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("%w after %s on %s", ErrNotReady, s.opts.ReadyTimeout,
			net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port)))
	}

	s.ns = ns
	s.logger.Info("NATS server started", "url", s.ClientURL())
	if !isLoopback(s.opts.Host) {
		s.logger.Warn("NATS server reachable beyond loopback without authentication", "host", s.opts.Host)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Stop shuts the server down and waits until it is gone.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
}

// ClientURL returns the URL clients connect to. Before Start it is built
// from the configured address.
func (s *Server) ClientURL() string {
	if s.ns == nil {
		return "nats://" + net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
	}
	return s.ns.ClientURL()
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}
