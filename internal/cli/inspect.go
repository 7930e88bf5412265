package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/extract"
	"github.com/law-makers/reviewwatch/internal/fingerprint"
	"github.com/law-makers/reviewwatch/internal/ui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.html>",
	Short: "Extract review results from a saved copy of the results page",
	Long: `Runs the extractor against an HTML file saved from the browser and prints
what it finds together with the fingerprint that would be stored.

Useful for checking the selectors after the portal changes its layout. The
state file is never touched and no notification is sent.`,
	Example: `  $ reviewwatch inspect results.html`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := GetApp(cmd).Config
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	page := browser.NewStaticPage(browser.FileLoader(path), nil)
	defer page.Close()

	if err := page.Navigate(cmd.Context(), "file://"+filepath.ToSlash(path)); err != nil {
		return err
	}

	snap, err := extract.New(page, extract.Options{
		Selectors:      cfg.Selectors,
		ElementTimeout: cfg.Timeouts.Element,
	}).Extract(cmd.Context())
	if err != nil {
		printOutline(cmd, path)
		return fmt.Errorf("no results in %s: %w", args[0], err)
	}

	w := cmd.OutOrStdout()
	ui.PrintSnapshot(w, snap)
	ui.PrintField(w, "Fingerprint", fingerprint.Of(snap))
	return nil
}

// printOutline shows what the page does contain so selectors can be fixed.
func printOutline(cmd *cobra.Command, path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		return
	}
	outline, err := ui.Outline(string(src))
	if err != nil || outline == "" {
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%s\n%s\n\n", ui.Bold("Page content"), outline)
}
