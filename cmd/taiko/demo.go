package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/suziejprince/taiko"
)

var demoCmd = &cobra.Command{
	Use:   "demo <url>",
	Short: "Open a browser, navigate to url, screenshot it, and close",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context(), args[0])
	},
}

func runDemo(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	if _, err := taiko.OpenBrowser(ctx, taiko.Options{
		Headless: flagHeadless,
		Port:     flagPort,
	}); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	defer taiko.CloseBrowser(context.Background())

	if _, err := taiko.Goto(ctx, url, taiko.GotoOptions{}); err != nil {
		return fmt.Errorf("navigating to %q: %w", url, err)
	}

	title, err := taiko.Title(ctx)
	if err != nil {
		return fmt.Errorf("reading title: %w", err)
	}

	shot, err := taiko.Screenshot(ctx, taiko.ScreenshotOptions{}, time.Now())
	if err != nil {
		return fmt.Errorf("taking screenshot: %w", err)
	}

	result := struct {
		Title      string `json:"title"`
		Screenshot string `json:"screenshot"`
	}{Title: title, Screenshot: shot.Path}

	if flagOutput == "json" {
		return outputResult(os.Stdout, "json", result)
	}
	return outputResult(os.Stdout, "text", textResult(fmt.Sprintf("%s\ntitle: %s\nscreenshot: %s", shot.Description, title, shot.Path)))
}
