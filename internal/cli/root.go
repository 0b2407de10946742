// Package cli implements the spdxview command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/build-flow-labs/spdxview/internal/viewer"
	"github.com/build-flow-labs/spdxview/render"
)

// ExitError asks the process to exit with Code without printing anything
// further; the reason has already been shown.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the spdxview command line and exits the process on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err == nil {
		return
	}
	stop()

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := newViper()

	rootCmd := &cobra.Command{
		Use:   "spdxview [file]",
		Short: "Inspect and pretty-print SPDX documents",
		Long: `spdxview loads an SPDX document, reports every structural problem it
finds, then prints the document in a human-readable layout.

Supported formats are RDF/XML, JSON, YAML and tag-value. Documents are read
from the local filesystem, or from a GitHub repository with --repo.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, v, args)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringP("format", "f", "auto", "Document format: auto, rdf, json, yaml, tag-value")
	pf.String("repo", "", "Read the document from a GitHub repository (owner/name)")
	pf.String("ref", "", "Branch, tag or commit to read with --repo (default: repository default branch)")

	rootCmd.Flags().String("constants", "", "Properties file overriding the bundled rendering labels")
	rootCmd.Flags().BoolP("watch", "w", false, "Inspect again every time the file changes")
	rootCmd.Flags().Bool("exit-code", false, "Exit with status 1 when the document is invalid or cannot be displayed")
	// Flags stop at the file argument; anything after it, flag-like or not,
	// is an extra argument the inspector warns about.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(newVerifyCmd(v))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func runInspect(cmd *cobra.Command, v *viper.Viper, args []string) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	newStore, err := storeFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}

	inspector := &viewer.Inspector{
		NewStore:    newStore,
		NewDocument: viewer.NewDocument,
		Renderer:    render.NewPrinter(cfg.Constants),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Logger:      logger,
	}

	if cfg.Watch {
		if cfg.Repo != "" {
			return errors.New("--watch only works with local files")
		}
		return inspector.Watch(ctx, args, viewer.DefaultDebounce, nil)
	}

	out := inspector.Run(ctx, args)
	if cfg.ExitCode && !out.Valid() {
		return &ExitError{Code: 1}
	}
	return nil
}
