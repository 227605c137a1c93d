package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/suziejprince/taiko"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell against a freshly opened browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context())
	},
}

// isTerminal reports whether r is an interactive terminal, gating the
// ">" prompt and echo. Grounded on tomyan-hubcap's wizard.go.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// runShell opens one browser for the lifetime of the session and
// dispatches typed verb commands against it line by line, in the shape
// of tomyan-hubcap's cmd_shell.go REPL.
func runShell(ctx context.Context) error {
	if _, err := taiko.OpenBrowser(ctx, taiko.Options{
		Headless: flagHeadless,
		Port:     flagPort,
	}); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	defer taiko.CloseBrowser(context.Background())

	interactive := isTerminal(os.Stdin)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if interactive {
			fmt.Fprint(os.Stdout, "taiko> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			break
		}

		args := splitArgs(line)
		cmd, rest := args[0], args[1:]
		handler, ok := shellCommands[cmd]
		if !ok {
			fmt.Fprintf(os.Stderr, "taiko: unknown command %q (try .help)\n", cmd)
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, flagTimeout)
		err := handler(cctx, rest)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "taiko: %v\n", err)
		}
	}
	return scanner.Err()
}

// splitArgs is a minimal whitespace tokenizer; no quoting support, since
// the shell's own commands never need embedded spaces beyond the final
// free-text argument, which each handler re-joins itself.
func splitArgs(line string) []string {
	return strings.Fields(line)
}

type shellHandler func(ctx context.Context, args []string) error

var shellCommands = map[string]shellHandler{
	".help": func(ctx context.Context, args []string) error {
		fmt.Fprintln(os.Stdout, `commands:
  goto <url>              navigate to url
  title                   print the current page title
  click <text>            click the element matching text
  write <text> into <sel> type text into the element matching sel
  screenshot [path]       capture a screenshot
  .quit, .exit            leave the shell`)
		return nil
	},
	"goto": func(ctx context.Context, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("usage: goto <url>")
		}
		res, err := taiko.Goto(ctx, args[0], taiko.GotoOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.Description)
		return nil
	},
	"title": func(ctx context.Context, args []string) error {
		title, err := taiko.Title(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, title)
		return nil
	},
	"click": func(ctx context.Context, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("usage: click <text>")
		}
		res, err := taiko.Click(ctx, taiko.S(strings.Join(args, " ")), taiko.ClickOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.Description)
		return nil
	},
	"write": func(ctx context.Context, args []string) error {
		text, sel, ok := splitWriteInto(args)
		if !ok {
			return fmt.Errorf("usage: write <text> into <sel>")
		}
		res, err := taiko.Write(ctx, text, taiko.WriteOptions{Into: ptrInto(taiko.Into(taiko.S(sel)))})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.Description)
		return nil
	},
	"screenshot": func(ctx context.Context, args []string) error {
		opts := taiko.ScreenshotOptions{}
		if len(args) > 0 {
			opts.Path = args[0]
		}
		res, err := taiko.Screenshot(ctx, opts, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.Description, res.Path)
		return nil
	},
}

func ptrInto(i taiko.IntoOption) *taiko.IntoOption { return &i }

// splitWriteInto splits "<text...> into <sel...>" on the last " into ".
func splitWriteInto(args []string) (text, sel string, ok bool) {
	line := strings.Join(args, " ")
	idx := strings.LastIndex(line, " into ")
	if idx < 0 {
		return "", "", false
	}
	return line[:idx], line[idx+len(" into "):], true
}
