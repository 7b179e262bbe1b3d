package led

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Default locations of the LED class and the udev database.
const (
	DefaultSysfsRoot = "/sys/class/leds"
	DefaultUdevData  = "/run/udev/data"
)

// Udev properties set by the feedbackd rules.
const (
	propType      = "FEEDBACKD_TYPE"
	propTypeLED   = "led"
	propDriver    = "DRIVER"
	udevSubsystem = "leds"
)

// Candidate is one entry of the LED class as seen before probing.
type Candidate struct {
	// Name is the class device name, e.g. "rgb:status".
	Name string
	// Path is the resolved sysfs directory holding the attributes.
	Path string
	// Properties are the udev properties of the device.
	Properties map[string]string
	// Drivers lists the bound driver of the device and each of its
	// ancestors, nearest first. Unbound levels are omitted.
	Drivers []string
}

// Marked reports whether udev tagged the device for feedbackd.
func (c Candidate) Marked() bool {
	return c.Properties[propType] == propTypeLED
}

// Enumerator lists LED class devices.
type Enumerator interface {
	Enumerate() ([]Candidate, error)
}

// SysfsEnumerator reads the LED class from sysfs and merges in the
// properties stored in the udev database.
type SysfsEnumerator struct {
	Root     string
	UdevData string
}

// NewSysfsEnumerator returns an enumerator for the live system.
func NewSysfsEnumerator() *SysfsEnumerator {
	return &SysfsEnumerator{Root: DefaultSysfsRoot, UdevData: DefaultUdevData}
}

// Enumerate returns all entries of the LED class sorted by name.
func (e *SysfsEnumerator) Enumerate() ([]Candidate, error) {
	entries, err := os.ReadDir(e.Root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", e.Root, err)
	}

	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		link := filepath.Join(e.Root, entry.Name())
		dir, err := filepath.EvalSymlinks(link)
		if err != nil {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}

		props := readUevent(dir)
		if e.UdevData != "" {
			for k, v := range readUdevDB(filepath.Join(e.UdevData, "+"+udevSubsystem+":"+entry.Name())) {
				props[k] = v
			}
		}

		candidates = append(candidates, Candidate{
			Name:       entry.Name(),
			Path:       dir,
			Properties: props,
			Drivers:    ancestorDrivers(dir),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates, nil
}

// readUevent parses KEY=VALUE lines of the uevent attribute.
func readUevent(dir string) map[string]string {
	props := make(map[string]string)
	f, err := os.Open(filepath.Join(dir, "uevent"))
	if err != nil {
		return props
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if k, v, ok := strings.Cut(scanner.Text(), "="); ok {
			props[k] = v
		}
	}
	return props
}

// readUdevDB parses the "E:KEY=VALUE" property lines of a udev database entry.
func readUdevDB(path string) map[string]string {
	props := make(map[string]string)
	f, err := os.Open(path)
	if err != nil {
		return props
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line, found := strings.CutPrefix(scanner.Text(), "E:")
		if !found {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			props[k] = v
		}
	}
	return props
}

// ancestorDrivers walks from dir up to the sysfs devices root collecting
// bound driver names, from the DRIVER uevent property or the driver link.
func ancestorDrivers(dir string) []string {
	var drivers []string
	for cur := dir; cur != "/" && cur != "." && filepath.Base(cur) != "devices"; cur = filepath.Dir(cur) {
		if driver := readUevent(cur)[propDriver]; driver != "" {
			drivers = append(drivers, driver)
			continue
		}
		target, err := os.Readlink(filepath.Join(cur, "driver"))
		if err == nil {
			drivers = append(drivers, filepath.Base(target))
		} else if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrInvalid) {
			break
		}
	}
	return drivers
}

// StaticEnumerator returns a fixed candidate list.
type StaticEnumerator []Candidate

// Enumerate implements Enumerator.
func (s StaticEnumerator) Enumerate() ([]Candidate, error) {
	return s, nil
}
