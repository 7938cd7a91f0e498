package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jakzo/things/internal/cli"
	"github.com/jakzo/things/internal/printer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, printer.Error(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cli.New(version).Run(ctx, args)
}
