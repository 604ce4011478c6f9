package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophrelief/internal/client/cli"
	"github.com/dmitrijs2005/gophrelief/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	if err := cli.Start(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Printf("%v", err)
		return
	}
}
