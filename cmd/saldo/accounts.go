package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saldoapp/saldo/internal/cli"
	"github.com/saldoapp/saldo/internal/common"
)

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts",
		RunE: func(_ *cobra.Command, _ []string) error {
			logger := slog.Default()
			paths := dataPaths()

			meta, err := openMetadata(paths, logger)
			if err != nil {
				return common.NewUserError("failed to load metadata", err)
			}

			accounts := meta.Accounts()
			if len(accounts) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No accounts configured."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Number"),
				cli.HeaderStyle.Render("Name"),
				cli.HeaderStyle.Render("Type"),
				cli.HeaderStyle.Render("Preset"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 8),
				strings.Repeat("-", 20),
				strings.Repeat("-", 12),
				strings.Repeat("-", 16))

			for _, acct := range accounts {
				presetName := cli.SubtleStyle.Render("(none)")
				if preset := meta.ResolvePreset(acct); preset != nil {
					presetName = preset.Name
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					acct.ID, acct.Number, acct.Name, acct.Type, presetName)
			}

			return nil
		},
	}
}
