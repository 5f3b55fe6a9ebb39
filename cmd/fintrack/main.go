package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

var version = "dev"

// app is the state shared by every command once the root pre-run has
// loaded configuration.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func main() {
	cli.LoadEnvFile()

	a := &app{}
	root := newRootCmd(a)

	ctx, stop := cli.SignalContext(context.Background(), log.Default())
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var logLevel, logFormat string
	root := &cobra.Command{
		Use:           "fintrack",
		Short:         "Personal expense and income tracker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentApp)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(
		initCmd(a),
		serveCmd(a),
		assetsCmd(a),
		categoryCmd(a),
		expenseCmd(a),
		incomeCmd(a),
		summaryCmd(a),
		parseCmd(a),
		watchCmd(a),
	)
	return root
}
