// Command frontier runs portfolio analyses from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs one command line and releases the container afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{log: zerolog.Nop()}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app holds the state shared by subcommands. The container is opened
// lazily so that commands like version work without a data directory.
type app struct {
	cfg       *config.Config
	container *di.Container
	log       zerolog.Logger
	logLevel  string
}

func (a *app) open(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	a.log = logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty, Output: os.Stderr})

	container, _, err := di.Wire(ctx, cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.container = container
	return container, nil
}

func (a *app) close() {
	if a.container != nil {
		a.container.Close()
		a.container = nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "frontier",
		Short: "Mean-variance portfolio analysis",
		Long: `Frontier computes optimal portfolios, the efficient frontier and
correlation reports from daily close prices stored locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newOptimizeCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newHistoryCmd(a))
	root.AddCommand(newBackupCmd(a))
	return root
}

// Output formats
const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatPretty   = "pretty"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatMarkdown, formatPretty:
		return nil
	}
	return fmt.Errorf("unknown format %q (want json, markdown or pretty)", format)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeMarkdown prints md as is, or rendered for the terminal in pretty mode.
func writeMarkdown(w io.Writer, md, format string) error {
	if format == formatPretty {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		if md, err = renderer.Render(md); err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
	}
	_, err := io.WriteString(w, md)
	return err
}

func splitSymbols(values []string) []string {
	var out []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
