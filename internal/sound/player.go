package sound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/smazurov/feedbackd/internal/process"
)

// Placeholders substituted in player command templates.
const (
	FilePlaceholder = "{file}"
	RolePlaceholder = "{role}"
)

// defaultCommands are tried in order by DetectPlayerCommand.
var defaultCommands = []string{
	"pw-play --media-role={role} {file}",
	"paplay --property=media.role={role} {file}",
}

// DetectPlayerCommand returns the first default player found in PATH.
func DetectPlayerCommand() (string, error) {
	for _, c := range defaultCommands {
		bin, _, _ := strings.Cut(c, " ")
		if _, err := exec.LookPath(bin); err == nil {
			return c, nil
		}
	}
	return "", errors.New("no sound player found in PATH (tried pw-play, paplay)")
}

// ExecPlayer plays sounds by running an external command.
type ExecPlayer struct {
	args   []string
	logger *slog.Logger
}

// NewExecPlayer parses a command template. The template must contain
// {file}; {role} is optional.
func NewExecPlayer(command string, logger *slog.Logger) (*ExecPlayer, error) {
	args, err := process.ParseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("empty player command")
	}
	if !strings.Contains(command, FilePlaceholder) {
		return nil, fmt.Errorf("player command %q lacks %s", command, FilePlaceholder)
	}
	return &ExecPlayer{args: args, logger: logger}, nil
}

// Play runs the player for file and waits for it.
func (p *ExecPlayer) Play(ctx context.Context, file, mediaRole string) error {
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		return err
	}

	args := p.expand(file, mediaRole)
	proc := process.New("sound:"+filepath.Base(file), args, p.logger)
	return proc.Run(ctx)
}

func (p *ExecPlayer) expand(file, mediaRole string) []string {
	r := strings.NewReplacer(FilePlaceholder, file, RolePlaceholder, mediaRole)
	args := make([]string, len(p.args))
	for i, a := range p.args {
		args[i] = r.Replace(a)
	}
	return args
}
