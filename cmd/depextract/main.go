package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/cmd/depextract/command"
	"github.com/harness/depextract/internal/style"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	command.Version = version
	factory := cmdutils.NewFactory()
	rootCmd := command.NewRootCmd(factory)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if factory.Terminal.ColorEnabled {
			fmt.Fprintln(os.Stderr, style.Error.Render("Error: "+err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
