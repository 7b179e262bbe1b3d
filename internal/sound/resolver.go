package sound

import (
	"os"
	"path/filepath"
	"strings"
)

// FallbackTheme is searched after the configured theme.
const FallbackTheme = "freedesktop"

var soundExtensions = []string{".oga", ".ogg", ".wav"}

// ThemeResolver looks effects up in XDG sound theme directories.
type ThemeResolver struct {
	// Dirs are the base "sounds" directories, in search order.
	Dirs []string
}

// NewThemeResolver searches $XDG_DATA_HOME/sounds and each
// $XDG_DATA_DIRS entry's sounds directory.
func NewThemeResolver() *ThemeResolver {
	return &ThemeResolver{Dirs: dataDirs()}
}

func dataDirs() []string {
	var dirs []string

	home := os.Getenv("XDG_DATA_HOME")
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(h, ".local", "share")
		}
	}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, "sounds"))
	}

	system := os.Getenv("XDG_DATA_DIRS")
	if system == "" {
		system = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(system, ":") {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "sounds"))
		}
	}
	return dirs
}

// Resolve returns the first existing <dir>/<theme>/stereo/<effect><ext>,
// trying theme and then the freedesktop theme.
func (r *ThemeResolver) Resolve(theme, effect string) (string, error) {
	if effect == "" || strings.ContainsRune(effect, filepath.Separator) {
		return "", ErrNotFound
	}

	themes := []string{theme}
	if theme != FallbackTheme {
		themes = append(themes, FallbackTheme)
	}

	for _, th := range themes {
		if th == "" {
			continue
		}
		for _, dir := range r.Dirs {
			for _, ext := range soundExtensions {
				path := filepath.Join(dir, th, "stereo", effect+ext)
				if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
					return path, nil
				}
			}
		}
	}
	return "", ErrNotFound
}
