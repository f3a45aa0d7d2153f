package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/saldoapp/saldo/internal/cli"
	"github.com/saldoapp/saldo/internal/common"
)

func categorizeCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "categorize <transaction-id> [category-name]",
		Short: "Assign a category to a ledger transaction",
		Long: `Set the category of one ledger row, identified by its transaction id.
Only the category assignment and the updated_at timestamp change; the row's
id, date, amount, and account are never altered.

Examples:
  saldo categorize 3f1a9c2b44de Groceries
  saldo categorize 3f1a9c2b44de --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			paths := dataPaths()

			store := openLedger(paths, logger)

			txID := args[0]
			if clear {
				if err := store.Categorize(cmd.Context(), txID, nil); err != nil {
					return common.NewUserError("failed to clear category", err)
				}
				fmt.Println(cli.FormatSuccess("cleared category on " + txID))
				return nil
			}

			if len(args) < 2 {
				return common.NewUserError("category name required unless --clear is given", nil)
			}

			meta, err := openMetadata(paths, logger)
			if err != nil {
				return common.NewUserError("failed to load metadata", err)
			}
			cat, ok := meta.CategoryByName(args[1])
			if !ok {
				return common.NewUserError("unknown category: "+args[1], nil)
			}

			if err := store.Categorize(cmd.Context(), txID, &cat.ID); err != nil {
				return common.NewUserError("failed to categorize", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("categorized %s as %s", txID, cat.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Reset the transaction to uncategorized")

	return cmd
}
