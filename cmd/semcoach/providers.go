package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func providersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List AI providers in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), flags.logLevel)

			cfg, err := flags.loader(logger).Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app := &App{logger: logger}
			router := app.buildRouter(cfg.Providers)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tCREDENTIAL\tSTATUS\tMODEL")
			for _, st := range router.Status() {
				status := "missing credential"
				if st.Configured {
					status = "configured"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Provider, st.CredentialKey, status, st.Model)
			}
			return w.Flush()
		},
	}
}
