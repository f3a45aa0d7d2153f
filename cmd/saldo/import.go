package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saldoapp/saldo/internal/cli"
	"github.com/saldoapp/saldo/internal/common"
	"github.com/saldoapp/saldo/internal/etl"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [account-numbers...]",
		Short: "Import raw bank exports into the ledger",
		Long: `Run the ETL pipeline: normalize every raw CSV under data/raw/<number>/
using the account's import preset and delta-merge the result into the
canonical ledger. With no arguments, every account directory under data/raw
is imported.

Examples:
  # Import every account with a raw directory
  saldo import

  # Import specific accounts by external number
  saldo import 7729 5440`,
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	paths := dataPaths()

	meta, err := openMetadata(paths, logger)
	if err != nil {
		return common.NewUserError("failed to load metadata", err)
	}
	store := openLedger(paths, logger)
	pipeline := etl.NewPipeline(meta, store, paths, logger)

	numbers := args
	if len(numbers) == 0 {
		if numbers, err = pipeline.DiscoverAccounts(); err != nil {
			return err
		}
	}
	if len(numbers) == 0 {
		fmt.Println(cli.FormatError("no account directories found under " + paths.RawDir()))
		return nil
	}

	bar := progressbar.NewOptions(len(numbers),
		progressbar.OptionSetDescription("Importing accounts"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	var results []etl.AccountResult
	for _, number := range numbers {
		result, runErr := pipeline.Run(cmd.Context(), []string{number})
		if runErr != nil {
			return runErr
		}
		results = append(results, result...)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	printImportSummary(results)
	return nil
}

func printImportSummary(results []etl.AccountResult) {
	fmt.Println(cli.FormatTitle("Import summary"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("Account"),
		cli.HeaderStyle.Render("Name"),
		cli.HeaderStyle.Render("Files"),
		cli.HeaderStyle.Render("Rows"),
		cli.HeaderStyle.Render("Status"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 8),
		strings.Repeat("-", 16),
		strings.Repeat("-", 5),
		strings.Repeat("-", 5),
		strings.Repeat("-", 24))

	for _, r := range results {
		status := cli.FormatSuccess("merged")
		switch {
		case errors.Is(r.Err, common.ErrNoRawFiles), errors.Is(r.Err, common.ErrNoValidDates):
			// Nothing to import is a degraded outcome, not a failure.
			status = cli.FormatWarning(r.Err.Error())
		case r.Err != nil:
			status = cli.FormatError(r.Err.Error())
		}
		name := r.Name
		if name == "" {
			name = cli.SubtleStyle.Render("(unknown)")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			r.Number, name, r.FilesRead, r.RowsMerged, status)
	}
	_ = w.Flush()
}
