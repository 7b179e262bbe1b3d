package cmd

import (
	"fmt"
	"io"

	"github.com/smazurov/feedbackd/internal/config"
	"github.com/smazurov/feedbackd/internal/feedback"
	"github.com/spf13/cobra"
)

// CreateValidateCmd creates the validate command which checks the config
// file and the theme it references without starting the daemon.
func CreateValidateCmd() *cobra.Command {
	var configFile, themeFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and feedback theme",
		Long: `Loads the [feedback] section of the configuration file and the theme it points to, ` +
			`reporting any error the daemon would hit on start or reload.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(configFile, themeFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configFile, "file", "f", "/etc/feedbackd/config.toml", "Configuration file to check")
	cmd.Flags().StringVarP(&themeFile, "theme", "T", "", "Theme file to check instead of the configured one")

	return cmd
}

func runValidate(configFile, themeFile string, out io.Writer) error {
	cfg, err := config.LoadFeedbackConfig(configFile)
	if err != nil {
		return fmt.Errorf("config %s: %w", configFile, err)
	}
	fmt.Fprintf(out, "Config %s: ok (profile %s, %d app overrides)\n", configFile, cfg.Profile, len(cfg.Apps))

	if themeFile == "" {
		themeFile = cfg.Theme
	}
	theme, err := feedback.LoadTheme(themeFile)
	if err != nil {
		if themeFile == "" {
			themeFile = "built-in"
		}
		return fmt.Errorf("theme %s: %w", themeFile, err)
	}

	source := theme.Path
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(out, "Theme %q (%s): ok, %d profiles, %d events\n",
		theme.Name, source, len(theme.Profiles), len(theme.Events()))
	return nil
}
