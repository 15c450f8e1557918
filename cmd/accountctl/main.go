package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/admin/cli"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	cli.NewApp(app.Service(), os.Stdin, os.Stdout).Run(ctx)

}
