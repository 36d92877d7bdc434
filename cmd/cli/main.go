package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/taskgraph/internal/app"
	"github.com/vk/taskgraph/internal/cli"
	"github.com/vk/taskgraph/internal/hcl"
)

// main is the entrypoint for the taskgraph application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string, opts ...app.Option) error {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	a := app.NewApp(outW, inv.Config, hcl.NewLoader(), opts...)
	switch inv.Command {
	case cli.CommandInspect:
		_, err = a.Inspect(ctx)
	default:
		_, err = a.Run(ctx)
	}
	if errors.Is(err, app.ErrTasksFailed) {
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}
	return err
}
