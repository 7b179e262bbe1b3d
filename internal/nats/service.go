package nats

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/feedbackd/internal/events"
	"github.com/smazurov/feedbackd/internal/feedback"
)

// Manager is the daemon side the service exposes.
type Manager interface {
	Trigger(req feedback.TriggerRequest, ack func(id uint32)) (uint32, error)
	End(id uint32) error
	Profile() string
	SetProfile(profile string) error
	EndSender(sender string) int
}

// Service answers feedback requests over NATS and broadcasts bus events.
type Service struct {
	// ClientTimeout is how long a sender may stay silent before its
	// events are ended. Zero uses DefaultClientTimeout. Set before Start.
	ClientTimeout time.Duration

	url      string
	manager  Manager
	eventBus *events.Bus
	conn     *nats.Conn
	subs     []*nats.Subscription
	unsubs   []func()
	clients  *clientWatch
	stopScan chan struct{}
	scanDone chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewService creates a service for manager.
func NewService(url string, manager Manager, eventBus *events.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		url:      url,
		manager:  manager,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-service"),
	}
}

// Start connects to NATS, subscribes to the request subjects and starts
// relaying bus events.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := nats.Connect(s.url,
		nats.Name("feedbackd-service"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Warn("NATS service disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.logger.Info("NATS service reconnected")
		}),
	)
	if err != nil {
		return err
	}
	s.conn = conn

	timeout := s.ClientTimeout
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	s.clients = newClientWatch(timeout)

	handlers := map[string]nats.MsgHandler{
		SubjectTrigger:     s.handleTrigger,
		SubjectEnd:         s.handleEnd,
		SubjectProfileGet:  s.handleProfileGet,
		SubjectProfileSet:  s.handleProfileSet,
		SubjectClientAlive: s.handleClientAlive,
		SubjectClientGone:  s.handleClientGone,
	}
	for subject, handler := range handlers {
		sub, err := conn.Subscribe(subject, handler)
		if err != nil {
			s.cleanup()
			return err
		}
		s.subs = append(s.subs, sub)
	}

	if s.eventBus != nil {
		s.unsubs = append(s.unsubs,
			s.eventBus.Subscribe(s.publishEnded),
			s.eventBus.Subscribe(s.publishProfileChanged),
		)
	}

	s.stopScan = make(chan struct{})
	s.scanDone = make(chan struct{})
	go s.scanClients(timeout/3, s.stopScan, s.scanDone)

	s.logger.Info("NATS service started", "url", s.url)
	return nil
}

// scanClients ends the events of senders whose heartbeats stopped.
func (s *Service) scanClients(every time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, sender := range s.clients.expired() {
				s.endSender(sender, "heartbeat timeout")
			}
		}
	}
}

func (s *Service) endSender(sender, why string) {
	if n := s.manager.EndSender(sender); n > 0 {
		s.logger.Info("Client vanished, ending its events", "sender", sender, "events", n, "reason", why)
	} else {
		s.logger.Debug("Client vanished", "sender", sender, "reason", why)
	}
}

func (s *Service) handleTrigger(msg *nats.Msg) {
	req, err := UnmarshalTriggerRequest(msg.Data)
	if err != nil {
		s.logger.Warn("Failed to unmarshal trigger request", "error", err)
		s.respond(msg, TriggerReply{Status: Status{Error: err.Error(), Code: feedback.ErrCodeInvalidArgs}})
		return
	}

	s.clients.touch(req.Sender)
	_, err = s.manager.Trigger(feedback.TriggerRequest{
		AppID: req.AppID,
		Event: req.Event,
		Hints: feedback.Hints{
			Profile:   req.Hints.Profile,
			Important: req.Hints.Important,
			SoundFile: req.Hints.SoundFile,
		},
		Timeout: req.Timeout,
		Sender:  req.Sender,
	}, func(id uint32) {
		s.respond(msg, TriggerReply{ID: id})
	})
	if err != nil {
		s.logger.Debug("Trigger rejected", "app_id", req.AppID, "event", req.Event, "error", err)
		s.respond(msg, TriggerReply{Status: statusFor(err)})
	}
}

func (s *Service) handleEnd(msg *nats.Msg) {
	req, err := UnmarshalEndRequest(msg.Data)
	if err != nil {
		s.respond(msg, EndReply{Status: Status{Error: err.Error(), Code: feedback.ErrCodeInvalidArgs}})
		return
	}

	// Ending an event that already ended is not an error for clients.
	err = s.manager.End(req.ID)
	if err != nil && feedback.ErrorCode(err) != feedback.ErrCodeNotFound {
		s.respond(msg, EndReply{Status: statusFor(err)})
		return
	}
	s.respond(msg, EndReply{})
}

func (s *Service) handleProfileGet(msg *nats.Msg) {
	s.respond(msg, ProfileReply{Profile: s.manager.Profile()})
}

func (s *Service) handleProfileSet(msg *nats.Msg) {
	req, err := UnmarshalProfileRequest(msg.Data)
	if err != nil {
		s.respond(msg, ProfileReply{Status: Status{Error: err.Error(), Code: feedback.ErrCodeInvalidArgs}})
		return
	}
	if err := s.manager.SetProfile(req.Profile); err != nil {
		s.respond(msg, ProfileReply{Profile: s.manager.Profile(), Status: statusFor(err)})
		return
	}
	s.respond(msg, ProfileReply{Profile: s.manager.Profile()})
}

func (s *Service) handleClientAlive(msg *nats.Msg) {
	m, err := UnmarshalClientHeartbeat(msg.Data)
	if err != nil {
		s.logger.Warn("Failed to unmarshal heartbeat", "error", err)
		return
	}
	s.clients.touch(m.Sender)
}

func (s *Service) handleClientGone(msg *nats.Msg) {
	m, err := UnmarshalClientHeartbeat(msg.Data)
	if err != nil || m.Sender == "" {
		return
	}
	s.clients.forget(m.Sender)
	s.endSender(m.Sender, "client left")
}

type marshaler interface {
	Marshal() ([]byte, error)
}

func (s *Service) respond(msg *nats.Msg, reply marshaler) {
	data, err := reply.Marshal()
	if err != nil {
		s.logger.Warn("Failed to marshal reply", "subject", msg.Subject, "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("Failed to send reply", "subject", msg.Subject, "error", err)
	}
}

func (s *Service) publishEnded(e events.FeedbackEndedEvent) {
	s.publish(SubjectEnded, FeedbackEnded{ID: e.ID, Reason: e.Reason})
}

func (s *Service) publishProfileChanged(e events.ProfileChangedEvent) {
	s.publish(SubjectProfileChanged, ProfileChanged{Profile: e.Profile})
}

func (s *Service) publish(subject string, m marshaler) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := m.Marshal()
	if err != nil {
		s.logger.Warn("Failed to marshal message", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		s.logger.Warn("Failed to publish", "subject", subject, "error", err)
	}
}

func statusFor(err error) Status {
	var fe *feedback.Error
	if errors.As(err, &fe) {
		return Status{Error: fe.Message, Code: fe.Code}
	}
	return Status{Error: err.Error()}
}

// cleanup unsubscribes and closes connection (must hold lock).
func (s *Service) cleanup() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil

	if s.conn != nil {
		// Drain delivers queued broadcasts before closing.
		if err := s.conn.Drain(); err != nil {
			s.conn.Close()
		}
		s.conn = nil
	}
}

// Stop closes the service connection.
func (s *Service) Stop() {
	// Bus handlers take s.mu, so drop them without holding it.
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	stopScan, scanDone := s.stopScan, s.scanDone
	s.stopScan = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	if stopScan != nil {
		close(stopScan)
		<-scanDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanup()
	s.logger.Info("NATS service stopped")
}

// IsConnected returns true if the service is connected to NATS.
func (s *Service) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && s.conn.IsConnected()
}
