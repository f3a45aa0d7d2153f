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

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and their groups",
		RunE: func(_ *cobra.Command, _ []string) error {
			logger := slog.Default()
			paths := dataPaths()

			meta, err := openMetadata(paths, logger)
			if err != nil {
				return common.NewUserError("failed to load metadata", err)
			}

			categories := meta.Categories()
			if len(categories) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No categories configured."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Name"),
				cli.HeaderStyle.Render("Group"),
				cli.HeaderStyle.Render("Type"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 20),
				strings.Repeat("-", 10))

			for _, cat := range categories {
				groupName := cli.SubtleStyle.Render("(none)")
				if group, ok := meta.GroupByID(cat.GroupID); ok {
					groupName = group.Name
				}
				name := cat.Name
				if cat.Emoji != "" {
					name = cat.Emoji + " " + name
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cat.ID, name, groupName, cat.Type)
			}

			return nil
		},
	}
}
