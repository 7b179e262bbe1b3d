package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/feedbackd/internal/api/models"
	"github.com/smazurov/feedbackd/internal/events"
	"github.com/smazurov/feedbackd/internal/feedback"
	"github.com/smazurov/feedbackd/internal/led"
	"github.com/smazurov/feedbackd/internal/types"
)

type fakeManager struct {
	mu       sync.Mutex
	profile  string
	events   map[uint32]feedback.EventInfo
	nextID   uint32
	requests []feedback.TriggerRequest
	ended    []uint32
}

func newFakeManager() *fakeManager {
	return &fakeManager{profile: "full", events: make(map[uint32]feedback.EventInfo)}
}

func (m *fakeManager) Trigger(req feedback.TriggerRequest, ack func(uint32)) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.AppID == "" || req.Event == "" {
		return 0, &feedback.Error{Code: feedback.ErrCodeInvalidArgs, Message: "empty"}
	}
	m.nextID++
	m.requests = append(m.requests, req)
	m.events[m.nextID] = feedback.EventInfo{ID: m.nextID, AppID: req.AppID, Event: req.Event, Timeout: req.Timeout, Level: "full"}
	if ack != nil {
		ack(m.nextID)
	}
	return m.nextID, nil
}

func (m *fakeManager) End(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return &feedback.Error{Code: feedback.ErrCodeNotFound, Message: "no running event"}
	}
	delete(m.events, id)
	m.ended = append(m.ended, id)
	return nil
}

func (m *fakeManager) Events() []feedback.EventInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]feedback.EventInfo, 0, len(m.events))
	for id := uint32(1); id <= m.nextID; id++ {
		if ev, ok := m.events[id]; ok {
			out = append(out, ev)
		}
	}
	return out
}

func (m *fakeManager) Lookup(id uint32) (feedback.EventInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	return ev, ok
}

func (m *fakeManager) Profile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *fakeManager) SetProfile(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
	return nil
}

type fakeDevice struct {
	name   string
	kind   led.Kind
	colors []led.Color
}

func (d *fakeDevice) Probe() error                       { return nil }
func (d *fakeDevice) Name() string                       { return d.name }
func (d *fakeDevice) Path() string                       { return "/sys/class/leds/" + d.name }
func (d *fakeDevice) Kind() led.Kind                     { return d.kind }
func (d *fakeDevice) Priority() int                      { return 10 }
func (d *fakeDevice) MaxBrightness() uint32              { return 255 }
func (d *fakeDevice) SetColor(led.Color, *led.RGB) error { return nil }
func (d *fakeDevice) StartPeriodic(_, _ uint32) error    { return nil }
func (d *fakeDevice) SetBrightness(uint32) error         { return nil }

func (d *fakeDevice) SupportsColor(c led.Color) bool {
	for _, have := range d.colors {
		if have == c {
			return true
		}
	}
	return false
}

type fakeLEDs []led.Device

func (f fakeLEDs) Devices() []led.Device { return f }

type fakeSystemd struct{ err error }

func (f fakeSystemd) Unit() string { return "feedbackd.service" }

func (f fakeSystemd) ServiceStatus(context.Context) (string, error) {
	return "active", f.err
}

func newTestAPI(t *testing.T, opts *Options) humatest.TestAPI {
	t.Helper()
	if opts.Manager == nil {
		opts.Manager = newFakeManager()
	}
	return humatest.Wrap(t, NewServer(opts).API())
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return v
}

func TestHealthAndVersion(t *testing.T) {
	api := newTestAPI(t, &Options{})

	resp := api.Get("/api/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("health status = %d", resp.Code)
	}
	if h := decode[models.HealthData](t, resp.Body.String()); h.Status != "ok" {
		t.Errorf("health = %+v", h)
	}

	resp = api.Get("/api/version")
	if resp.Code != http.StatusOK {
		t.Fatalf("version status = %d", resp.Code)
	}
	if v := decode[models.VersionData](t, resp.Body.String()); v.GoVersion == "" {
		t.Errorf("version = %+v", v)
	}
}

func TestListLEDs(t *testing.T) {
	tests := []struct {
		name string
		leds LEDLister
		want int
	}{
		{"no registry", nil, 0},
		{"two devices", fakeLEDs{
			&fakeDevice{name: "rgb:status", kind: led.KindMulticolor, colors: []led.Color{led.ColorRed, led.ColorGreen, led.ColorBlue, led.ColorRGB}},
			&fakeDevice{name: "white:flash", kind: led.KindFlash, colors: []led.Color{led.ColorFlash}},
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, &Options{LEDs: tt.leds})
			resp := api.Get("/api/leds")
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d", resp.Code)
			}
			data := decode[models.LEDListData](t, resp.Body.String())
			if data.Count != tt.want || len(data.LEDs) != tt.want {
				t.Fatalf("count = %d, want %d", data.Count, tt.want)
			}
			if tt.want > 0 {
				first := data.LEDs[0]
				if first.Kind != "multicolor" || strings.Join(first.Colors, ",") != "red,green,blue,rgb" {
					t.Errorf("first LED = %+v", first)
				}
			}
		})
	}
}

func TestTriggerAndEnd(t *testing.T) {
	mgr := newFakeManager()
	api := newTestAPI(t, &Options{Manager: mgr})

	resp := api.Post("/api/feedback/trigger", map[string]any{
		"app_id":    "org.example.App",
		"event":     "message-new-instant",
		"profile":   "quiet",
		"important": true,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("trigger status = %d: %s", resp.Code, resp.Body.String())
	}
	trig := decode[models.TriggerData](t, resp.Body.String())
	if trig.ID != 1 {
		t.Errorf("id = %d, want 1", trig.ID)
	}
	req := mgr.requests[0]
	if req.Timeout != -1 || req.Hints.Profile != "quiet" || !req.Hints.Important || req.Sender != "http" {
		t.Errorf("request = %+v", req)
	}

	resp = api.Get("/api/feedback/events")
	list := decode[models.EventListData](t, resp.Body.String())
	if list.Count != 1 || list.Events[0].Event != "message-new-instant" {
		t.Errorf("events = %+v", list)
	}

	if resp = api.Get("/api/feedback/events/1"); resp.Code != http.StatusOK {
		t.Errorf("get event status = %d", resp.Code)
	}
	if resp = api.Delete("/api/feedback/events/1"); resp.Code != http.StatusNoContent {
		t.Errorf("end status = %d: %s", resp.Code, resp.Body.String())
	}
	if resp = api.Delete("/api/feedback/events/1"); resp.Code != http.StatusNotFound {
		t.Errorf("second end status = %d, want 404", resp.Code)
	}
	if resp = api.Get("/api/feedback/events/1"); resp.Code != http.StatusNotFound {
		t.Errorf("get ended event status = %d, want 404", resp.Code)
	}
}

func TestTriggerValidation(t *testing.T) {
	api := newTestAPI(t, &Options{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing event", map[string]any{"app_id": "org.example.App"}},
		{"empty app", map[string]any{"app_id": "", "event": "x"}},
		{"bad timeout", map[string]any{"app_id": "a", "event": "x", "timeout": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := api.Post("/api/feedback/trigger", tt.body); resp.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", resp.Code)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	mgr := newFakeManager()
	api := newTestAPI(t, &Options{Manager: mgr})

	resp := api.Put("/api/feedback/profile", map[string]any{"profile": "silent"})
	if resp.Code != http.StatusOK {
		t.Fatalf("set status = %d: %s", resp.Code, resp.Body.String())
	}
	if got := api.Get("/api/feedback/profile"); decode[models.ProfileData](t, got.Body.String()).Profile != "silent" {
		t.Errorf("profile = %s", got.Body.String())
	}

	if resp := api.Put("/api/feedback/profile", map[string]any{"profile": "loud"}); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown profile status = %d, want 422", resp.Code)
	}
	if mgr.Profile() != "silent" {
		t.Errorf("manager profile = %s", mgr.Profile())
	}
}

func TestFeedbackErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{feedback.ErrCodeInvalidArgs, http.StatusUnprocessableEntity},
		{feedback.ErrCodeUnknownProfile, http.StatusUnprocessableEntity},
		{feedback.ErrCodeNotFound, http.StatusNotFound},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var err error = &feedback.Error{Code: tt.code, Message: "x"}
		if tt.code == "" {
			err = errors.New("boom")
		}
		var se interface{ GetStatus() int }
		if !errors.As(feedbackError("failed", err), &se) || se.GetStatus() != tt.want {
			t.Errorf("feedbackError(%q) status mismatch, want %d", tt.code, tt.want)
		}
	}
}

func TestBasicAuth(t *testing.T) {
	api := newTestAPI(t, &Options{AuthUsername: "admin", AuthPassword: "secret"})
	good := "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	bad := "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("admin:nope"))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health is open", "/api/health", "", http.StatusOK},
		{"missing credentials", "/api/feedback/profile", "", http.StatusUnauthorized},
		{"wrong password", "/api/feedback/profile", bad, http.StatusUnauthorized},
		{"wrong scheme", "/api/feedback/profile", "Authorization: Bearer abc", http.StatusUnauthorized},
		{"valid", "/api/feedback/profile", good, http.StatusOK},
		{"query auth", "/api/feedback/profile?auth=" + base64.StdEncoding.EncodeToString([]byte("admin:secret")), "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []any
			if tt.header != "" {
				args = append(args, tt.header)
			}
			resp := api.Get(tt.path, args...)
			if resp.Code != tt.want {
				t.Errorf("status = %d, want %d", resp.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && resp.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestServiceStatus(t *testing.T) {
	api := newTestAPI(t, &Options{})
	if resp := api.Get("/api/system/service"); resp.Code != http.StatusNotFound {
		t.Errorf("without systemd status = %d, want 404", resp.Code)
	}

	api = newTestAPI(t, &Options{Systemd: fakeSystemd{}})
	resp := api.Get("/api/system/service")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	data := decode[models.ServiceStatusData](t, resp.Body.String())
	if data.Service != "feedbackd.service" || data.Status != "active" {
		t.Errorf("service = %+v", data)
	}

	api = newTestAPI(t, &Options{Systemd: fakeSystemd{err: errors.New("no bus")}})
	if resp := api.Get("/api/system/service"); resp.Code != http.StatusInternalServerError {
		t.Errorf("failing status = %d, want 500", resp.Code)
	}
}

func TestFeedbackStream(t *testing.T) {
	bus := events.New()
	api := newTestAPI(t, &Options{EventBus: bus})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		resp := api.GetCtx(ctx, "/api/feedback/stream")
		done <- resp.Body.String()
	}()

	time.Sleep(100 * time.Millisecond)
	bus.Publish(events.FeedbackEndedEvent{ID: 9, Reason: types.EndReasonCancelled, Timestamp: "2026-01-01T00:00:00Z"})
	time.Sleep(100 * time.Millisecond)
	cancel()

	body := <-done
	if !strings.Contains(body, "event: profile-changed") {
		t.Errorf("stream missing initial profile: %q", body)
	}
	if !strings.Contains(body, "event: feedback-ended") || !strings.Contains(body, `"reason":"cancelled"`) {
		t.Errorf("stream missing ended event: %q", body)
	}
}

func TestRootHandlerRouting(t *testing.T) {
	handler := NewServer(&Options{Manager: newFakeManager()}).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"preflight", http.MethodOptions, "/api/feedback/trigger", http.StatusNoContent},
		{"preflight unknown path", http.MethodOptions, "/nowhere", http.StatusNoContent},
		{"unknown path", http.MethodGet, "/api/nowhere", http.StatusNotFound},
		{"known path", http.MethodGet, "/api/health", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
			if tt.method == http.MethodOptions && rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("preflight without CORS headers")
			}
		})
	}
}
