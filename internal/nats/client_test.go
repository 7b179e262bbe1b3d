package nats

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/feedbackd/internal/events"
	"github.com/smazurov/feedbackd/internal/feedback"
	"github.com/smazurov/feedbackd/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startTestServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(ServerOptions{
		Port:   -1, // random free port
		Name:   "test-server",
		Logger: testLogger(),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

// fakeManager ends every event with a fixed reason right after the ack.
type fakeManager struct {
	bus     *events.Bus
	mu      sync.Mutex
	profile string
	nextID  uint32
	reqs    []feedback.TriggerRequest
	ended   []uint32
	reason  types.EndReason
	gone    []string
}

func (m *fakeManager) Trigger(req feedback.TriggerRequest, ack func(uint32)) (uint32, error) {
	if req.Event == "" {
		return 0, &feedback.Error{Code: feedback.ErrCodeInvalidArgs, Message: "app id and event must not be empty"}
	}
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.reqs = append(m.reqs, req)
	reason := m.reason
	m.mu.Unlock()

	ack(id)
	if reason == types.EndReasonNotFound {
		m.bus.Publish(events.FeedbackEndedEvent{ID: id, Reason: reason})
	}
	return id, nil
}

func (m *fakeManager) End(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id > m.nextID {
		return &feedback.Error{Code: feedback.ErrCodeNotFound, Message: "no running event with this id"}
	}
	m.ended = append(m.ended, id)
	go m.bus.Publish(events.FeedbackEndedEvent{ID: id, Reason: types.EndReasonCancelled})
	return nil
}

func (m *fakeManager) Profile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *fakeManager) SetProfile(p string) error {
	if types.ParseLevel(p) == types.LevelUnknown {
		return &feedback.Error{Code: feedback.ErrCodeUnknownProfile, Message: "unknown profile " + p}
	}
	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
	m.bus.Publish(events.ProfileChangedEvent{Profile: p})
	return nil
}

func (m *fakeManager) EndSender(sender string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gone = append(m.gone, sender)
	n := 0
	for _, req := range m.reqs {
		if req.Sender == sender {
			n++
		}
	}
	return n
}

func (m *fakeManager) goneSenders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.gone...)
}

func startTestService(t *testing.T) (*fakeManager, *Client) {
	t.Helper()
	server := startTestServer(t)
	bus := events.New()
	manager := &fakeManager{bus: bus, profile: "full", reason: types.EndReasonNatural}

	service := NewService(server.ClientURL(), manager, bus, testLogger())
	if err := service.Start(); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	t.Cleanup(service.Stop)

	client := NewClient(server.ClientURL(), testLogger())
	if err := client.Connect("test-client"); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(client.Close)
	return manager, client
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(ServerOptions{Port: -1, Name: "test-server", Logger: testLogger()})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if !server.IsRunning() {
		t.Error("Server should be running after Start()")
	}
	if url := server.ClientURL(); url == "" {
		t.Error("ClientURL should not be empty")
	}

	server.Stop()

	if server.IsRunning() {
		t.Error("Server should not be running after Stop()")
	}
}

func TestDefaultServerOptions(t *testing.T) {
	opts := DefaultServerOptions()
	if opts.Port != 4223 || opts.Host != "127.0.0.1" || opts.Name != "feedbackd" {
		t.Errorf("DefaultServerOptions() = %+v", opts)
	}

	filled := ServerOptions{Port: -1}.withDefaults()
	if filled.Port != -1 || filled.ReadyTimeout != DefaultReadyTimeout || filled.MaxPayload != DefaultMaxPayload ||
		filled.Logger == nil {
		t.Errorf("withDefaults() = %+v", filled)
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"localhost", true},
		{"0.0.0.0", false},
		{"192.168.1.5", false},
	}
	for _, tt := range tests {
		if got := isLoopback(tt.host); got != tt.want {
			t.Errorf("isLoopback(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestClientNotConnected(t *testing.T) {
	client := NewClient("nats://127.0.0.1:59999", testLogger())
	if err := client.Connect("test"); err == nil {
		t.Error("Connect should fail with non-existent server")
	}
	if _, err := client.Trigger(context.Background(), TriggerRequest{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Trigger() error = %v, want ErrNotConnected", err)
	}
	if client.IsConnected() {
		t.Error("Client should not be connected")
	}
	client.Close()
}

func TestTriggerRoundTrip(t *testing.T) {
	manager, client := startTestService(t)

	ended := make(chan FeedbackEnded, 4)
	unsub, err := client.SubscribeEnded(func(m FeedbackEnded) { ended <- m })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := client.Trigger(ctx, TriggerRequest{
		AppID:   "org.example.Test",
		Event:   "phone-incoming-call",
		Hints:   Hints{Profile: "quiet", Important: true, SoundFile: "/tmp/a.oga"},
		Timeout: 10,
		Sender:  "sender-1",
	})
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}

	manager.mu.Lock()
	got := manager.reqs[0]
	manager.mu.Unlock()
	want := feedback.TriggerRequest{
		AppID:   "org.example.Test",
		Event:   "phone-incoming-call",
		Hints:   feedback.Hints{Profile: "quiet", Important: true, SoundFile: "/tmp/a.oga"},
		Timeout: 10,
		Sender:  "sender-1",
	}
	if got != want {
		t.Errorf("manager got %+v, want %+v", got, want)
	}

	if err := client.End(ctx, id); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	select {
	case m := <-ended:
		if m.ID != id || m.Reason != types.EndReasonCancelled {
			t.Errorf("ended = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ended broadcast")
	}
}

func TestTriggerNotFoundRepliesFirst(t *testing.T) {
	manager, client := startTestService(t)
	manager.reason = types.EndReasonNotFound

	ended := make(chan FeedbackEnded, 1)
	unsub, _ := client.SubscribeEnded(func(m FeedbackEnded) { ended <- m })
	defer unsub()

	id, err := client.Trigger(context.Background(), TriggerRequest{AppID: "a", Event: "nothing"})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-ended:
		if m.ID != id || m.Reason != types.EndReasonNotFound {
			t.Errorf("ended = %+v, want %d not-found", m, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ended broadcast")
	}
}

func TestTriggerError(t *testing.T) {
	_, client := startTestService(t)

	_, err := client.Trigger(context.Background(), TriggerRequest{AppID: "a"})
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Trigger() error = %v, want RemoteError", err)
	}
	if remote.Code != feedback.ErrCodeInvalidArgs {
		t.Errorf("Code = %q, want %q", remote.Code, feedback.ErrCodeInvalidArgs)
	}
}

func TestEndUnknownIsTolerated(t *testing.T) {
	_, client := startTestService(t)
	if err := client.End(context.Background(), 99); err != nil {
		t.Errorf("End() error = %v, want nil", err)
	}
}

func TestProfile(t *testing.T) {
	_, client := startTestService(t)
	ctx := context.Background()

	changed := make(chan ProfileChanged, 1)
	unsub, err := client.SubscribeProfileChanged(func(m ProfileChanged) { changed <- m })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	profile, err := client.Profile(ctx)
	if err != nil || profile != "full" {
		t.Fatalf("Profile() = %q, %v", profile, err)
	}

	if err := client.SetProfile(ctx, "silent"); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	select {
	case m := <-changed:
		if m.Profile != "silent" {
			t.Errorf("changed = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no profile broadcast")
	}

	var remote *RemoteError
	if err := client.SetProfile(ctx, "loud"); !errors.As(err, &remote) || remote.Code != feedback.ErrCodeUnknownProfile {
		t.Errorf("SetProfile(loud) error = %v", err)
	}
}

func TestServiceStop(t *testing.T) {
	server := startTestServer(t)
	bus := events.New()
	service := NewService(server.ClientURL(), &fakeManager{bus: bus}, bus, testLogger())
	if err := service.Start(); err != nil {
		t.Fatal(err)
	}
	if !service.IsConnected() {
		t.Error("service should be connected")
	}
	service.Stop()
	if service.IsConnected() {
		t.Error("service should be disconnected after Stop")
	}
	// Broadcasts after Stop are dropped.
	bus.Publish(events.FeedbackEndedEvent{ID: 1})
}

func TestServiceEndsSendersThatLeave(t *testing.T) {
	server := startTestServer(t)
	bus := events.New()
	manager := &fakeManager{bus: bus, reason: types.EndReasonNatural}
	service := NewService(server.ClientURL(), manager, bus, testLogger())
	service.ClientTimeout = 150 * time.Millisecond
	if err := service.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(service.Stop)

	client := NewClient(server.ClientURL(), testLogger())
	if err := client.Connect("test-client"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(client.Close)

	ctx := context.Background()
	withdrawLeaving := client.Announce("leaving", 20*time.Millisecond)
	withdrawStaying := client.Announce("staying", 20*time.Millisecond)
	defer withdrawStaying()
	for _, sender := range []string{"leaving", "staying", "silent"} {
		if _, err := client.Trigger(ctx, TriggerRequest{AppID: "a", Event: "bell", Sender: sender}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := client.Trigger(ctx, TriggerRequest{AppID: "a", Event: "bell"}); err != nil {
		t.Fatal(err)
	}

	withdrawLeaving()
	deadline := time.Now().Add(2 * time.Second)
	for !slices.Contains(manager.goneSenders(), "leaving") {
		if time.Now().After(deadline) {
			t.Fatal("leaving sender was not ended")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// "silent" never sends heartbeats and times out.
	for !slices.Contains(manager.goneSenders(), "silent") {
		if time.Now().After(deadline) {
			t.Fatal("silent sender did not time out")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Let a few more scans pass while "staying" keeps announcing.
	time.Sleep(300 * time.Millisecond)
	for _, sender := range manager.goneSenders() {
		if sender == "staying" || sender == "" {
			t.Errorf("sender %q ended while still announced", sender)
		}
	}
}
