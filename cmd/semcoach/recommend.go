package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c360studio/semcoach/recommend"
	"github.com/spf13/cobra"
)

func recommendCmd(flags *globalFlags) *cobra.Command {
	var reportPath, issuesPath string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend learning resources for a report",
		Long: `Run the recommendation pipeline once and print the result as JSON.

The report is read from --report (use - for stdin). Issues are optional and
read from --issues as a JSON array of {"category","content","severity"}.`,
		Example: `  semcoach recommend --report today.md
  cat today.md | semcoach recommend --report - --issues issues.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), flags.logLevel)

			report, err := readInput(cmd.InOrStdin(), reportPath)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			if strings.TrimSpace(report) == "" {
				return fmt.Errorf("report is empty")
			}

			var issues []recommend.Issue
			if issuesPath != "" {
				raw, err := readInput(cmd.InOrStdin(), issuesPath)
				if err != nil {
					return fmt.Errorf("read issues: %w", err)
				}
				if err := json.Unmarshal([]byte(raw), &issues); err != nil {
					return fmt.Errorf("parse issues: %w", err)
				}
				for i := range issues {
					issues[i].Category = recommend.ParseCategory(string(issues[i].Category))
					issues[i].Severity = recommend.ParseSeverity(string(issues[i].Severity))
				}
			}

			cfg, err := flags.loader(logger).Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app, err := NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			services := app.Build(cfg)
			result := services.Recommender.Recommend(cmd.Context(), report, issues)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "Report file (- for stdin)")
	cmd.Flags().StringVarP(&issuesPath, "issues", "i", "", "Issues JSON file")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
