package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/build-flow-labs/spdxview/internal/viewer"
	"github.com/build-flow-labs/spdxview/store"
)

// config is the resolved configuration of one command invocation.
// Priority (highest to lowest): flags > SPDXVIEW_* environment > .env file > defaults.
type config struct {
	LogLevel  string
	Format    store.Format
	Constants string
	Repo      string
	Ref       string
	Token     string
	Watch     bool
	ExitCode  bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SPDXVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github-token", "SPDXVIEW_GITHUB_TOKEN", "GITHUB_TOKEN")
	return v
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (config, error) {
	_ = godotenv.Load()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config{}, fmt.Errorf("binding flags: %w", err)
	}

	format, err := store.ParseFormat(v.GetString("format"))
	if err != nil {
		return config{}, err
	}

	return config{
		LogLevel:  v.GetString("log-level"),
		Format:    format,
		Constants: v.GetString("constants"),
		Repo:      v.GetString("repo"),
		Ref:       v.GetString("ref"),
		Token:     v.GetString("github-token"),
		Watch:     v.GetBool("watch"),
		ExitCode:  v.GetBool("exit-code"),
	}, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// storeFactory returns a constructor for stores reading from the configured
// source: local files, or a GitHub repository when --repo is set.
func storeFactory(ctx context.Context, cfg config, logger *slog.Logger) (func() viewer.Store, error) {
	opts := []store.Option{
		store.WithFormat(cfg.Format),
		store.WithLogger(logger),
	}
	if cfg.Repo != "" {
		owner, name, err := store.ParseRepo(cfg.Repo)
		if err != nil {
			return nil, err
		}
		client := store.NewGitHubClient(ctx, cfg.Token)
		opts = append(opts, store.WithSource(store.NewGitHubSource(client, owner, name, cfg.Ref)))
		logger.Debug("reading documents from GitHub", "owner", owner, "repo", name, "ref", cfg.Ref)
	}
	return func() viewer.Store { return store.New(opts...) }, nil
}
