// probo-testbed serves the sample application the built-in suites run
// against. Point a qa profile at http://localhost:<port> and
// http://localhost:<port>/api.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/testbed"
)

var (
	port        = flag.Int("port", 9080, "Port to listen on")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Probo testbed version %s\n", common.GetVersion())
		os.Exit(0)
	}

	logger := arbor.NewLogger()
	common.PrintBanner(common.GetVersion())

	server := testbed.NewServer(logger).Listen(*port)

	logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", *port)).
		Msg("Testbed ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down testbed")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Testbed shutdown failed")
	}
}
