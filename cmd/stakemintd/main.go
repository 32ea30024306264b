package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/stakemint/node/app"
)

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	if err := app.RootCmd().Execute(); err != nil {
		zap.L().Fatal("command failed", zap.Error(err))
	}
	os.Exit(0)
}
