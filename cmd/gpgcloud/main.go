package main

import (
	"context"
	"log"
	"os"

	"github.com/gpgcloud/gpgcloud/internal/cli"
	"github.com/gpgcloud/gpgcloud/internal/config"
	"github.com/gpgcloud/gpgcloud/internal/flagx"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	code := app.Run(ctx, flagx.CommandArgs(os.Args[1:]))
	if err := app.Close(); err != nil {
		log.Printf("close: %v", err)
	}
	os.Exit(code)
}
