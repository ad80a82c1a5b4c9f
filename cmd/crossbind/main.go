// Command crossbind compiles typesystem descriptions into overload
// decision trees and runs dispatch scenarios against them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/crossbind/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
