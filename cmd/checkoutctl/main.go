package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "checkoutctl",
		Short:         "Operator tool for the FicMart checkout service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAddr := os.Getenv("CHECKOUT_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().String("addr", defaultAddr, "Checkout service base URL")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Print the raw response data as JSON")

	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(refundCmd())
	rootCmd.AddCommand(statusCmd())

	return rootCmd
}

func clientFor(cmd *cobra.Command) *client {
	addr, _ := cmd.Flags().GetString("addr")
	return newClient(addr)
}

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}
