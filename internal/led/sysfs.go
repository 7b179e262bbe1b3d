package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Attribute names of the LED class interface.
const (
	attrBrightness      = "brightness"
	attrMaxBrightness   = "max_brightness"
	attrMultiIndex      = "multi_index"
	attrMultiIntensity  = "multi_intensity"
	attrPattern         = "pattern"
	attrHWPattern       = "hw_pattern"
	attrRepeat          = "repeat"
	attrTrigger         = "trigger"
	attrFlashStrobe     = "flash_strobe"
	attrFlashBrightness = "flash_brightness"
)

// hasAttr reports whether the attribute file exists in dir.
func hasAttr(dir, attr string) bool {
	_, err := os.Stat(filepath.Join(dir, attr))
	return err == nil
}

// readAttr returns the attribute content with surrounding whitespace removed.
func readAttr(dir, attr string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readUintAttr parses a decimal attribute. Missing or malformed values read as 0.
func readUintAttr(dir, attr string) uint32 {
	s, err := readAttr(dir, attr)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// readListAttr splits a whitespace separated attribute. Returns nil if
// the attribute does not exist.
func readListAttr(dir, attr string) []string {
	s, err := readAttr(dir, attr)
	if err != nil {
		return nil
	}
	return strings.Fields(s)
}

// writeAttr writes value to the attribute. The file must already exist;
// sysfs attributes are never created.
func writeAttr(dir, attr, value string) error {
	f, err := os.OpenFile(filepath.Join(dir, attr), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return &WriteError{Path: dir, Attr: attr, Value: value, Cause: err}
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return &WriteError{Path: dir, Attr: attr, Value: value, Cause: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: dir, Attr: attr, Value: value, Cause: err}
	}
	return nil
}

func writeUintAttr(dir, attr string, value uint32) error {
	return writeAttr(dir, attr, fmt.Sprintf("%d\n", value))
}
