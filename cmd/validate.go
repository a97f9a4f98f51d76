package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/saveimg/internal/config"
	"github.com/AnyUserName/saveimg/internal/report"
	"github.com/AnyUserName/saveimg/internal/settings"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a config file, settings file or save report",
	Long: `Checks a file without converting anything:

  *.json                 a report written by save --report; saved files must
                         still exist with the recorded size and hash
  *.yaml with platform:  a saveimg config file
  other *.yaml           a user settings file`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	path := args[0]

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return validateReport(path)
	case ".yaml", ".yml":
		return validateYAML(path)
	default:
		return fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func validateReport(path string) error {
	r, err := report.ReadJSON(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	errs := report.Validate(r, filepath.Dir(path))
	if len(errs) == 0 {
		fmt.Println("  ✓ Report is valid")
		fmt.Printf("  ✓ %d entries, %d saved, %d failed\n", r.Stats.Total, r.Stats.Succeeded, r.Stats.Failed)
		return nil
	}

	fmt.Printf("  ✗ Report has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateYAML(path string) error {
	if config.IsConfigFile(path) {
		c, err := config.Load(path)
		if err != nil {
			fmt.Printf("  ✗ %v\n", err)
			return fmt.Errorf("validation failed")
		}
		fmt.Println("  ✓ Config is valid")
		fmt.Printf("  ✓ offscreen=%t browser=%t primary_timeout=%s\n",
			c.Platform.Offscreen, c.Browser.Enabled, c.Platform.PrimaryTimeout)
		return nil
	}

	s, err := settings.Load(path, settings.Defaults())
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		return fmt.Errorf("validation failed")
	}
	save, cp := settings.MenuTitles(s.OutputFormat)
	fmt.Println("  ✓ Settings are valid")
	fmt.Printf("  ✓ %s / %s, pattern %q\n", save, cp, s.FilenamePattern)
	return nil
}
