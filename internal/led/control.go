package led

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// TriggerPattern is the software pattern trigger used for blinking.
const TriggerPattern = "pattern"

// ErrTriggerUnavailable is returned when the kernel does not offer a trigger.
var ErrTriggerUnavailable = errors.New("LED trigger not available")

// ActiveTrigger parses the trigger attribute and returns the selected
// trigger along with all offered ones.
func ActiveTrigger(dir string) (active string, offered []string, err error) {
	raw, err := readAttr(dir, attrTrigger)
	if err != nil {
		return "", nil, err
	}
	for _, t := range strings.Fields(raw) {
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			t = strings.Trim(t, "[]")
			active = t
		}
		offered = append(offered, t)
	}
	return active, offered, nil
}

// SetTrigger selects trigger on the LED at dir. Nothing is written when
// it is already active, which keeps udev rules from causing change
// event storms.
func SetTrigger(dir, trigger string) error {
	active, offered, err := ActiveTrigger(dir)
	if err != nil {
		return fmt.Errorf("read trigger: %w", err)
	}
	if active == trigger {
		return nil
	}
	if !slices.Contains(offered, trigger) {
		return fmt.Errorf("%w: %s", ErrTriggerUnavailable, trigger)
	}
	return writeAttr(dir, attrTrigger, trigger)
}

// LookupGroup resolves a group name or numeric id.
func LookupGroup(name string) (int, error) {
	if gid, err := strconv.Atoi(name); err == nil {
		return gid, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

// SetPermissions makes the attributes feedbackd writes group writable by
// gid. brightness is required, multi_intensity optional; for the pattern
// trigger pattern and repeat are required and hw_pattern optional.
func SetPermissions(dir, trigger string, gid int) error {
	if err := setAttrPerm(dir, attrBrightness, gid); err != nil {
		return err
	}
	_ = setAttrPerm(dir, attrMultiIntensity, gid)

	if trigger != TriggerPattern {
		return nil
	}

	var errs []error
	for _, attr := range []string{attrPattern, attrRepeat} {
		if err := setAttrPerm(dir, attr, gid); err != nil {
			errs = append(errs, err)
		}
	}
	_ = setAttrPerm(dir, attrHWPattern, gid)
	return errors.Join(errs...)
}

func setAttrPerm(dir, attr string, gid int) error {
	path := filepath.Join(dir, attr)
	if err := os.Chown(path, -1, gid); err != nil {
		return fmt.Errorf("set group of %s to %d: %w", path, gid, err)
	}
	if err := os.Chmod(path, 0o664); err != nil {
		return fmt.Errorf("set mode of %s: %w", path, err)
	}
	return nil
}
