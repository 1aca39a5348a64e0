package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rzbill/txlog/internal/cmd/inspect"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := inspect.NewRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "txlog:", err)
		cancel()
		os.Exit(1)
	}
}
