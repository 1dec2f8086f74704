package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:           "lumincredit",
		Short:         "Explainable credit score engine",
		Long:          `lumincredit scores financial profiles, explains month-by-month score movements and serves them over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultCfg, "config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(payCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
