// Package main provides the semcoach binary entry point.
// Semcoach runs daily 1on1 coaching sessions over a multi-provider AI
// router and recommends learning resources for the issues they surface.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	// Register LLM providers via init()
	_ "github.com/c360studio/semcoach/llm/providers"

	"github.com/c360studio/semcoach/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semcoach"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "AI 1on1 coaching with learning recommendations",
		Long: `Semcoach runs daily 1on1 coaching conversations, writes a report for each
session, extracts the issues raised and recommends five learning resources
balanced across videos, articles and books.

Completions are routed across OpenAI, Gemini and Claude in priority order;
a provider that fails or has no credential is skipped for the next one.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML); defaults to semcoach.yaml in the current or a parent directory")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(&flags),
		recommendCmd(&flags),
		providersCmd(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// newLogger builds the process logger and installs it as the default.
func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func (f *globalFlags) loader(logger *slog.Logger) *config.Loader {
	var opts []config.LoaderOption
	if f.configPath != "" {
		opts = append(opts, config.WithConfigFile(f.configPath))
	}
	return config.NewLoader(logger, opts...)
}
