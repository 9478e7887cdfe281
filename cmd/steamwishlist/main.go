package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"steamwishlist/cmd/steamwishlist/commands"
	"steamwishlist/internal/components/telemetry"
	"syscall"
	"time"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetry.InitSlog(commands.VerboseRequested(os.Args[1:]))

	tel, err := telemetry.SetupFromEnv(ctx, "steamwishlist")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := commands.ExecuteContext(ctx, os.Args[1:])

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer shutdownCancel()
	err = tel.Shutdown(shutdownCtx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to flush telemetry:", err)
	}

	os.Exit(code)
}
