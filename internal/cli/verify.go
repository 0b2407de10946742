package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/build-flow-labs/spdxview/spdxdoc"
)

type verifyReport struct {
	File        string   `json:"file" yaml:"file"`
	DocumentURI string   `json:"document_uri,omitempty" yaml:"document_uri,omitempty"`
	Valid       bool     `json:"valid" yaml:"valid"`
	Violations  []string `json:"violations" yaml:"violations"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	var asJSON, asYAML bool

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify an SPDX document without printing it",
		Long: `Verify loads an SPDX document and checks it against the SPDX structural
rules. It exits with status 1 when the document cannot be loaded or has
violations, so it can gate a pipeline step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON && asYAML {
				return errors.New("--json and --yaml are mutually exclusive")
			}
			report, err := verifyFile(cmd, v, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case asJSON:
				err = writeJSON(w, report)
			case asYAML:
				err = writeYAML(w, report)
			default:
				writeText(w, report)
			}
			if err != nil {
				return err
			}
			if !report.Valid {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Output the report as YAML")
	return cmd
}

// verifyFile loads path and verifies it. Load failures are part of the
// report; only configuration problems are returned as errors.
func verifyFile(cmd *cobra.Command, v *viper.Viper, path string) (*verifyReport, error) {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	newStore, err := storeFactory(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}

	report := &verifyReport{File: path, Violations: []string{}}

	s := newStore()
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("unable to close SPDX store", "error", err)
		}
	}()

	uri, err := s.Open(cmd.Context(), path)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}
	report.DocumentURI = uri

	doc, err := spdxdoc.New(s, uri)
	if err != nil {
		report.Error = err.Error()
		return report, nil
	}

	if violations := doc.Verify(); len(violations) > 0 {
		report.Violations = violations
	}
	report.Valid = len(report.Violations) == 0
	logger.Info("verified document", "path", path, "uri", uri, "violations", len(report.Violations))
	return report, nil
}

func writeText(w io.Writer, r *verifyReport) {
	switch {
	case r.Error != "":
		fmt.Fprintf(w, "Error creating SPDX Document: %s\n", r.Error)
	case r.Valid:
		fmt.Fprintf(w, "%s: valid SPDX Document\n", r.File)
	default:
		fmt.Fprint(w, "This SPDX Document is not valid due to:\n")
		for _, v := range r.Violations {
			fmt.Fprintf(w, "\t%s\n", v)
		}
	}
}

func writeJSON(w io.Writer, r *verifyReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, r *verifyReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
