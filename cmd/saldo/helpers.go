package main

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/saldoapp/saldo/internal/config"
	"github.com/saldoapp/saldo/internal/ledger"
	"github.com/saldoapp/saldo/internal/metadata"
)

func dataPaths() config.Paths {
	return config.NewPaths(viper.GetString("data.dir"))
}

func openMetadata(paths config.Paths, logger *slog.Logger) (*metadata.Store, error) {
	return metadata.Load(paths.MetadataDir(), logger)
}

func openLedger(paths config.Paths, logger *slog.Logger) *ledger.Store {
	return ledger.NewStore(paths.LedgerFile(), logger)
}
