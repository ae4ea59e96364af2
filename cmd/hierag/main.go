// Command hierag indexes structured documents into a chunk hierarchy and
// answers retrieval queries with hierarchical context.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/hierag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hierag/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := file.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version, func(ctx context.Context, opts cli.BootstrapOptions) (*cli.Services, func(), error) {
		return bootstrap(ctx, opts, os.LookupEnv)
	})
	stop()
	if err != nil {
		os.Exit(1)
	}
}
