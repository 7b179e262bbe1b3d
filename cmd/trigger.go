package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/feedbackd/internal/logging"
	"github.com/smazurov/feedbackd/pkg/feedback"
	"github.com/spf13/cobra"
)

const (
	defaultTriggerEvent = "phone-incoming-call"
	defaultTriggerAppID = "org.sigxcpu.fbcli"
)

// ErrWatchExpired is returned when the event did not end before the watch
// duration elapsed.
var ErrWatchExpired = errors.New("watch expired waiting for all feedbacks to finish")

type triggerOptions struct {
	event     string
	appID     string
	profile   string
	soundFile string
	url       string
	timeout   int32
	important bool
	watch     time.Duration
}

// CreateTriggerCmd creates the trigger command, a client that triggers a
// single event or switches the global profile.
func CreateTriggerCmd() *cobra.Command {
	var o triggerOptions

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger feedback for an event",
		Long: `Triggers feedback for an event on a running feedbackd and waits until it ended. ` +
			`Pressing <RETURN> ends the feedback right away. ` +
			`When only --profile is given the global feedback profile is changed instead.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := []feedback.Option{feedback.WithLogger(logging.GetLogger("fbcli"))}
			if o.url != "" {
				opts = append(opts, feedback.WithURL(o.url))
			}
			fc, err := feedback.Init(o.appID, opts...)
			if err != nil {
				return fmt.Errorf("init feedback: %w", err)
			}

			uninit, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			if o.profile != "" && o.event == "" {
				err = runSetProfile(ctx, fc, o.profile, cmd.OutOrStdout())
			} else {
				err = runTrigger(ctx, fc, o, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return errors.Join(err, fc.Uninit(uninit))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.event, "event", "E", "", "Event name (default \""+defaultTriggerEvent+"\")")
	f.StringVarP(&o.appID, "app-id", "A", defaultTriggerAppID, "Application id to report")
	f.BoolVarP(&o.important, "important", "I", false, "Mark the event as important")
	f.Int32VarP(&o.timeout, "timeout", "t", -1, "Run feedback for timeout seconds")
	f.StringVarP(&o.profile, "profile", "P", "", "Profile name to set or to hint for the event")
	f.DurationVarP(&o.watch, "watch", "w", 30*time.Second, "How long to wait for the event to end")
	f.StringVarP(&o.soundFile, "sound-file", "S", "", "Sound file overriding the theme's sound")
	f.StringVar(&o.url, "url", "", "NATS URL of the daemon (default $FEEDBACKD_URL or "+feedback.DefaultURL+")")

	return cmd
}

func runSetProfile(ctx context.Context, fc *feedback.Context, profile string, out io.Writer) error {
	current, err := fc.Profile(ctx)
	if err != nil {
		return err
	}
	if current == profile {
		fmt.Fprintf(out, "Profile is already set to %s\n", profile)
		return nil
	}

	if err := fc.SetProfile(ctx, profile); err != nil {
		return err
	}
	current, err = fc.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current feedback profile is: '%s'\n", current)
	return nil
}

func runTrigger(ctx context.Context, fc *feedback.Context, o triggerOptions, in io.Reader, out io.Writer) error {
	name := o.event
	if name == "" {
		name = defaultTriggerEvent
	}

	fmt.Fprintf(out, "Triggering feedback for event '%s'\n", name)
	ev := fc.NewEvent(name)
	if err := ev.SetTimeout(o.timeout); err != nil {
		return err
	}
	if o.profile != "" {
		ev.SetProfile(o.profile)
	}
	ev.SetImportant(o.important)
	if o.soundFile != "" {
		ev.SetSoundFile(o.soundFile)
	}

	ended := make(chan struct{})
	var once sync.Once
	ev.OnEnded(func(*feedback.Event) {
		once.Do(func() { close(ended) })
	})

	if err := ev.Trigger(ctx); err != nil {
		fmt.Fprintf(out, "Failed to report event: %v\n", err)
		return err
	}

	if in != nil {
		go waitForReturn(ctx, ev, in, out)
		fmt.Fprintln(out, "Press <RETURN> to end feedback right away.")
	}

	watch := time.NewTimer(o.watch)
	defer watch.Stop()

	select {
	case <-ended:
	case <-watch.C:
		fmt.Fprintln(out, "Watch expired waiting for all feedbacks to finish")
		return ErrWatchExpired
	case <-ctx.Done():
		return ctx.Err()
	}

	if ev.EndReason() == feedback.EndReasonNotFound {
		profile, err := fc.Profile(ctx)
		if err != nil {
			profile = "unknown"
		}
		fmt.Fprintf(out, "No feedback found for '%s' at level '%s'\n", name, profile)
		return nil
	}
	fmt.Fprintf(out, "Feedback ended: %s\n", ev.EndReason())
	return nil
}

// waitForReturn ends the event once a line is read from in.
func waitForReturn(ctx context.Context, ev *feedback.Event, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	if _, err := reader.ReadString('\n'); err != nil {
		return
	}
	if ev.State() != feedback.StateRunning {
		return
	}
	fmt.Fprintln(out, "Ending feedback")
	if err := ev.End(ctx); err != nil {
		fmt.Fprintf(out, "Failed to end feedback: %v\n", err)
	}
}
