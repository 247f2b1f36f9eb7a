package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/quadro/cmd/loader/cli"
	"github.com/odyssey-erp/quadro/internal/app"
)

func main() {
	if app.InTestMode() {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "loader: %v\n", err)
		stop()
		os.Exit(cli.ExitFailure)
	}
}
