package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/coordinator"
	"github.com/AnyUserName/saveimg/internal/delivery"
	"github.com/AnyUserName/saveimg/internal/filename"
	"github.com/AnyUserName/saveimg/internal/report"
	"github.com/AnyUserName/saveimg/internal/settings"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	savePageURL string
	saveOutDir  string
	saveReport  string
	savePreset  string
	saveFormat  string
	saveMax     int
	saveAs      bool
)

var saveCmd = &cobra.Command{
	Use:   "save <image_url>",
	Short: "Convert an image and save it to disk",
	Long: `Converts the image to the configured format (PNG by default, JPEG with
--format jpeg), optionally resized so its longer side fits --max, and saves
it under a name generated from the filename pattern.

The page URL feeds the {site} tokens and is opened in the browser so the
page fallback has a tab to run in.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVar(&savePageURL, "page-url", "", "page the image was found on (default: the image URL)")
	saveCmd.Flags().StringVarP(&saveOutDir, "out", "o", "", "download directory (default: config download.dir)")
	saveCmd.Flags().StringVarP(&saveReport, "report", "r", "", "write a JSON report to this path")
	saveCmd.Flags().StringVarP(&savePreset, "preset", "p", "", "settings preset ("+strings.Join(settings.PresetNames(), ", ")+")")
	saveCmd.Flags().StringVarP(&saveFormat, "format", "f", "", "output format: png or jpeg")
	saveCmd.Flags().IntVar(&saveMax, "max", -1, "longest side in pixels, 0 keeps the original size")
	saveCmd.Flags().BoolVar(&saveAs, "save-as", false, "ask where to save the file")
	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	imageURL := args[0]
	pageURL := savePageURL
	if pageURL == "" {
		pageURL = imageURL
	}

	a, err := newApp(cfg, log, appOptions{
		out:      os.Stdout,
		dir:      saveOutDir,
		preset:   savePreset,
		prompter: &terminalPrompter{in: os.Stdin, out: os.Stderr},
		adjust:   saveOverrides(cmd),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if a.browser != nil && filename.IsHTTPLike(pageURL) {
		if _, err := a.openPage(ctx, pageURL); err != nil {
			log.Warn().Err(err).Str("page", pageURL).Msg("page not opened, fallback unavailable")
		}
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " converting " + imageURL
	sp.Start()
	out, err := a.coord.SaveImage(ctx, imageURL, pageURL)
	sp.Stop()

	if saveReport != "" && out.Request.URI != "" {
		if werr := writeSaveReport(a, pageURL, out); werr != nil {
			return werr
		}
	}
	return err
}

func writeSaveReport(a *app, pageURL string, out coordinator.SaveResult) error {
	preset := savePreset
	if preset == "" {
		preset = a.cfg.Settings.Preset
	}
	rep := report.New(preset)
	rep.Platform = a.platform()
	e := rep.Add("save", pageURL, out.Request, out.Result, out.Took)
	if e.Output != nil && out.Outcome.Path != "" {
		e.Output.Path = reportPath(saveReport, out.Outcome.Path)
	}
	if err := report.WriteJSON(rep, saveReport); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info().Str("path", saveReport).Msg("report written")
	return nil
}

// saveOverrides returns the settings changes requested by flags, or nil.
func saveOverrides(cmd *cobra.Command) func(*settings.Settings) {
	flags := cmd.Flags()
	if !flags.Changed("format") && !flags.Changed("max") && !flags.Changed("save-as") {
		return nil
	}
	return func(s *settings.Settings) {
		if flags.Changed("format") {
			s.OutputFormat = conversion.ParseFormat(saveFormat)
		}
		if flags.Changed("max") {
			s.ResizeMax = saveMax
		}
		if flags.Changed("save-as") {
			s.SaveAsPrompt = saveAs
		}
	}
}

// reportPath makes path relative to the report's directory when possible.
func reportPath(reportFile, path string) string {
	if reportFile == "" {
		return path
	}
	base, err := filepath.Abs(filepath.Dir(reportFile))
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// terminalPrompter asks for a destination on the terminal. An empty answer
// keeps the suggestion; end of input cancels.
type terminalPrompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func (p *terminalPrompter) Prompt(ctx context.Context, suggested string) (string, error) {
	if p.r == nil {
		p.r = bufio.NewReader(p.in)
	}
	fmt.Fprintf(p.out, "  Save as [%s]: ", suggested)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.r.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		line := strings.TrimSpace(a.line)
		if a.err != nil && line == "" {
			return "", delivery.ErrPromptCanceled
		}
		if line == "" {
			return suggested, nil
		}
		return line, nil
	}
}
