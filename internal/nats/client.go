package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultRequestTimeout bounds requests whose context has no deadline.
const DefaultRequestTimeout = 5 * time.Second

// ErrNotConnected is returned by Client calls before Connect.
var ErrNotConnected = errors.New("not connected to feedbackd")

// Client talks to the daemon over NATS.
type Client struct {
	url    string
	conn   *nats.Conn
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewClient creates a client for the server at url.
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		url:    url,
		logger: logger.With("component", "nats-client"),
	}
}

// Connect establishes the connection. name identifies the client in
// server monitoring.
func (c *Client) Connect(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := nats.Connect(c.url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			} else {
				c.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.url, err)
	}

	c.conn = conn
	c.logger.Debug("Connected to NATS", "url", c.url)
	return nil
}

func (c *Client) connection() (*nats.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *Client) request(ctx context.Context, subject string, m marshaler) ([]byte, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}
	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", subject, err)
	}
	return msg.Data, nil
}

// Trigger sends a trigger request and returns the event id.
func (c *Client) Trigger(ctx context.Context, req TriggerRequest) (uint32, error) {
	data, err := c.request(ctx, SubjectTrigger, req)
	if err != nil {
		return 0, err
	}
	reply, err := UnmarshalTriggerReply(data)
	if err != nil {
		return 0, err
	}
	if err := reply.Err(); err != nil {
		return 0, err
	}
	return reply.ID, nil
}

// End asks the daemon to end the event with id.
func (c *Client) End(ctx context.Context, id uint32) error {
	data, err := c.request(ctx, SubjectEnd, EndRequest{ID: id})
	if err != nil {
		return err
	}
	reply, err := UnmarshalEndReply(data)
	if err != nil {
		return err
	}
	return reply.Err()
}

// Profile returns the global profile.
func (c *Client) Profile(ctx context.Context) (string, error) {
	data, err := c.request(ctx, SubjectProfileGet, ProfileRequest{})
	if err != nil {
		return "", err
	}
	reply, err := UnmarshalProfileReply(data)
	if err != nil {
		return "", err
	}
	return reply.Profile, reply.Err()
}

// SetProfile changes the global profile.
func (c *Client) SetProfile(ctx context.Context, profile string) error {
	data, err := c.request(ctx, SubjectProfileSet, ProfileRequest{Profile: profile})
	if err != nil {
		return err
	}
	reply, err := UnmarshalProfileReply(data)
	if err != nil {
		return err
	}
	return reply.Err()
}

// SubscribeEnded delivers every FeedbackEnded broadcast to fn, in order.
func (c *Client) SubscribeEnded(fn func(FeedbackEnded)) (func(), error) {
	return c.subscribe(SubjectEnded, func(data []byte) error {
		m, err := UnmarshalFeedbackEnded(data)
		if err == nil {
			fn(m)
		}
		return err
	})
}

// SubscribeProfileChanged delivers profile change broadcasts to fn.
func (c *Client) SubscribeProfileChanged(fn func(ProfileChanged)) (func(), error) {
	return c.subscribe(SubjectProfileChanged, func(data []byte) error {
		m, err := UnmarshalProfileChanged(data)
		if err == nil {
			fn(m)
		}
		return err
	})
}

func (c *Client) subscribe(subject string, handle func([]byte) error) (func(), error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handle(msg.Data); err != nil {
			c.logger.Warn("Failed to unmarshal broadcast", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	// Make sure the server knows the interest before returning.
	if err := conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Announce publishes a heartbeat for sender now and every interval until
// the returned stop is called. stop tells the daemon the sender is gone,
// which ends the events it triggered.
func (c *Client) Announce(sender string, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	beat := ClientHeartbeat{Sender: sender}

	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			c.publish(SubjectClientAlive, beat)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
			c.publish(SubjectClientGone, beat)
			if conn, err := c.connection(); err == nil {
				_ = conn.Flush()
			}
		})
	}
}

func (c *Client) publish(subject string, m marshaler) {
	conn, err := c.connection()
	if err != nil {
		return
	}
	data, err := m.Marshal()
	if err != nil {
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		c.logger.Debug("Failed to publish", "subject", subject, "error", err)
	}
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Close closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.logger.Debug("NATS client closed")
}
