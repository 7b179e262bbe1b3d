package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/smazurov/feedbackd/internal/led"
	"github.com/smazurov/feedbackd/internal/logging"
	"github.com/spf13/cobra"
)

// Exit codes of the ledctrl command.
const (
	LEDCtrlOK         = 0
	LEDCtrlErrCmdline = 1
	LEDCtrlErrTrigger = 2
	LEDCtrlErrPerms   = 3
)

// CreateLEDCtrlCmd creates the ledctrl command. It is meant to run from a
// udev rule to prepare an LED's sysfs attributes for the daemon.
func CreateLEDCtrlCmd() *cobra.Command {
	var path, trigger, group string

	cmd := &cobra.Command{
		Use:   "ledctrl",
		Short: "Prepare an LED's sysfs attributes for feedbackd",
		Long: `Selects the given trigger on an LED and, when a group is given, makes the attributes ` +
			`feedbackd writes group writable. Exits 1 on command line errors, 2 when the trigger ` +
			`cannot be set and 3 when permissions cannot be changed.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if code := runLEDCtrl(path, trigger, group, cmd.ErrOrStderr()); code != LEDCtrlOK {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Path to the LED's sysfs dir")
	cmd.Flags().StringVarP(&trigger, "trigger", "t", "", "LED trigger to configure")
	cmd.Flags().StringVarP(&group, "group", "G", "", "Group to set permissions to")

	return cmd
}

func runLEDCtrl(path, trigger, group string, stderr io.Writer) int {
	logger := logging.GetLogger("ledctrl")

	if path == "" {
		fmt.Fprintln(stderr, "No sysfs path given")
		return LEDCtrlErrCmdline
	}
	if trigger == "" {
		fmt.Fprintln(stderr, "No trigger specified")
		return LEDCtrlErrCmdline
	}

	logger.Debug("Configuring LED", "path", path, "trigger", trigger)
	if err := led.SetTrigger(path, trigger); err != nil {
		fmt.Fprintf(stderr, "Failed to set trigger %s on %s: %v\n", trigger, path, err)
		return LEDCtrlErrTrigger
	}

	if group == "" {
		return LEDCtrlOK
	}

	gid, err := led.LookupGroup(group)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to get group %s: %v\n", group, err)
		return LEDCtrlErrPerms
	}
	logger.Debug("Setting permissions", "path", path, "group", group, "gid", gid)
	if err := led.SetPermissions(path, trigger, gid); err != nil {
		fmt.Fprintf(stderr, "Failed to set permissions: %v\n", err)
		return LEDCtrlErrPerms
	}
	return LEDCtrlOK
}
