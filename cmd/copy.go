package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var copyPageURL string

var copyCmd = &cobra.Command{
	Use:   "copy <image_url>",
	Short: "Convert an image and copy it to the clipboard of its page",
	Long: `Opens the page in the browser, converts the image and writes it to the
page's clipboard as PNG or JPEG. A toast on the page reports the outcome.
Requires the browser to be enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runCopy,
}

func init() {
	copyCmd.Flags().StringVar(&copyPageURL, "page-url", "", "page to copy into (default: the image URL)")
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	imageURL := args[0]
	pageURL := copyPageURL
	if pageURL == "" {
		pageURL = imageURL
	}

	a, err := newApp(cfg, log, appOptions{out: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	tab, err := a.openPage(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("open %s: %w", pageURL, err)
	}

	out, err := a.coord.CopyImage(ctx, imageURL, pageURL, &tab)
	if err != nil {
		return err
	}
	fmt.Printf("  ✓ %s copied to %s in %s\n", out.Request.Format.Label(), out.Tab, out.Took.Round(time.Millisecond))
	return nil
}
