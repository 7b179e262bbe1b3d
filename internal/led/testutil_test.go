package led

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLED creates a sysfs-like attribute directory and returns its candidate.
func fakeLED(t *testing.T, name string, attrs map[string]string, drivers ...string) Candidate {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for attr, value := range attrs {
		if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Candidate{
		Name:       name,
		Path:       dir,
		Properties: map[string]string{propType: propTypeLED},
		Drivers:    drivers,
	}
}

func readFile(t *testing.T, dir, attr string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func mustProbe(t *testing.T, dev Device) {
	t.Helper()
	if err := dev.Probe(); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
