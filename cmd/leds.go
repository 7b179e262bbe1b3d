package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/smazurov/feedbackd/internal/led"
	"github.com/smazurov/feedbackd/internal/logging"
	"github.com/spf13/cobra"
)

// CreateLEDsCmd creates the leds command which probes the LED class the
// way the daemon does and prints the result.
func CreateLEDsCmd() *cobra.Command {
	enum := led.NewSysfsEnumerator()
	var all bool

	cmd := &cobra.Command{
		Use:   "leds",
		Short: "List the LEDs feedbackd would use",
		Long: `Enumerates the LED class, probes every device udev marked for feedbackd and prints ` +
			`the usable ones in selection order. With --all every class device is listed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLEDs(enum, all, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&enum.Root, "sysfs-root", led.DefaultSysfsRoot, "LED class directory")
	cmd.Flags().StringVar(&enum.UdevData, "udev-data", led.DefaultUdevData, "udev database directory")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "List all LED class devices, not only usable ones")

	return cmd
}

func runLEDs(e led.Enumerator, all bool, out io.Writer) error {
	logger := logging.GetLogger("leds")

	if all {
		candidates, err := e.Enumerate()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMARKED\tDRIVERS\tPATH")
		for _, c := range candidates {
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", c.Name, c.Marked(), strings.Join(c.Drivers, ","), c.Path)
		}
		return w.Flush()
	}

	registry, err := led.NewRegistry(e, logger)
	if errors.Is(err, led.ErrNoUsableDevice) {
		fmt.Fprintln(out, "No usable LED found")
		return nil
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tPRIORITY\tMAX\tCOLORS")
	for _, d := range registry.Devices() {
		colors := led.SupportedColors(d)
		names := make([]string, len(colors))
		for i, c := range colors {
			names[i] = c.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", d.Name(), d.Kind(), d.Priority(), d.MaxBrightness(),
			strings.Join(names, ","))
	}
	return w.Flush()
}
