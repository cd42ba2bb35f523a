/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/price-relay/internal/bootstrap"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Price relay service",
	Long: `Price relay connects to the upstream combined ticker stream and serves
websocket clients.

This service:
- Subscribes to the configured symbols on a single upstream connection
- Reconnects after a fixed delay whenever the upstream drops
- Lets each client pick one symbol with {"action":"getPrice","symbol":"..."}
- Mirrors tickers to redis and nats jetstream when configured`,
	Run: bootstrap.StartPriceRelay,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
