package led

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestActiveTrigger(t *testing.T) {
	c := fakeLED(t, "red:status", map[string]string{attrTrigger: "none [timer] pattern heartbeat\n"})
	active, offered, err := ActiveTrigger(c.Path)
	if err != nil {
		t.Fatal(err)
	}
	if active != "timer" {
		t.Errorf("active = %q", active)
	}
	if len(offered) != 4 || offered[1] != "timer" {
		t.Errorf("offered = %v", offered)
	}
}

func TestSetTrigger(t *testing.T) {
	c := fakeLED(t, "red:status", map[string]string{attrTrigger: "[none] timer pattern\n"})
	if err := SetTrigger(c.Path, TriggerPattern); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, c.Path, attrTrigger); got != "pattern" {
		t.Errorf("trigger = %q", got)
	}
}

func TestSetTriggerAlreadyActive(t *testing.T) {
	const content = "none [pattern]\n"
	c := fakeLED(t, "red:status", map[string]string{attrTrigger: content})
	if err := SetTrigger(c.Path, TriggerPattern); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, c.Path, attrTrigger); got != content {
		t.Errorf("active trigger must not be rewritten, got %q", got)
	}
}

func TestSetTriggerUnavailable(t *testing.T) {
	c := fakeLED(t, "red:status", map[string]string{attrTrigger: "[none] timer\n"})
	if err := SetTrigger(c.Path, TriggerPattern); !errors.Is(err, ErrTriggerUnavailable) {
		t.Errorf("SetTrigger() error = %v, want ErrTriggerUnavailable", err)
	}
}

func TestSetPermissions(t *testing.T) {
	gid := os.Getgid()

	c := fakeLED(t, "rgb:status", map[string]string{
		attrBrightness: "0",
		attrPattern:    "",
		attrRepeat:     "",
	})
	if err := SetPermissions(c.Path, TriggerPattern, gid); err != nil {
		t.Fatal(err)
	}
	for _, attr := range []string{attrBrightness, attrPattern, attrRepeat} {
		info, err := os.Stat(filepath.Join(c.Path, attr))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o664 {
			t.Errorf("%s mode = %v", attr, info.Mode().Perm())
		}
	}

	missing := fakeLED(t, "red:status", map[string]string{attrBrightness: "0"})
	if err := SetPermissions(missing.Path, TriggerPattern, gid); err == nil {
		t.Error("expected error when pattern attributes are missing")
	}
	if err := SetPermissions(missing.Path, "timer", gid); err != nil {
		t.Errorf("non pattern trigger only needs brightness, got %v", err)
	}
}

func TestLookupGroupNumeric(t *testing.T) {
	gid, err := LookupGroup("1234")
	if err != nil || gid != 1234 {
		t.Errorf("LookupGroup(1234) = %d, %v", gid, err)
	}
}
