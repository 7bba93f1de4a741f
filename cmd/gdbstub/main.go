package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "gdbstub: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gdbstub",
		Short:         "GDB remote serial protocol stub for a simulated target",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	flagCfg := defaultServeConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve debug exceptions over TCP or a serial line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, flagCfg, cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "TOML config file")
	f.StringVar(&flagCfg.Listen, "listen", flagCfg.Listen, "TCP address to accept the debugger on")
	f.StringVar(&flagCfg.Serial, "serial", "", "serial device to use instead of TCP")
	f.IntVar(&flagCfg.Baud, "baud", flagCfg.Baud, "serial baud rate")
	f.IntVar(&flagCfg.MaxPacketSize, "max-packet-size", flagCfg.MaxPacketSize, "packet buffer size in bytes")
	f.StringVar(&flagCfg.MetricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on")
	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "log level (trace, debug, info, warn, error, off)")
	f.Uint64Var(&flagCfg.InitialPC, "initial-pc", flagCfg.InitialPC, "program counter of the simulated target")
	cmd.MarkFlagsMutuallyExclusive("listen", "serial")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file, or over
// the defaults when there is no file.
func resolveConfig(path string, flagCfg serveConfig, flags *pflag.FlagSet) (serveConfig, error) {
	cfg := defaultServeConfig()
	if path != "" {
		var err error
		if cfg, err = loadConfig(path); err != nil {
			return serveConfig{}, err
		}
	}

	if flags.Changed("serial") {
		cfg.Serial = flagCfg.Serial
		if !flags.Changed("listen") {
			cfg.Listen = ""
		}
	}
	if flags.Changed("listen") {
		cfg.Listen = flagCfg.Listen
		if !flags.Changed("serial") {
			cfg.Serial = ""
		}
	}
	if flags.Changed("baud") {
		cfg.Baud = flagCfg.Baud
	}
	if flags.Changed("max-packet-size") {
		cfg.MaxPacketSize = flagCfg.MaxPacketSize
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = flagCfg.MetricsAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagCfg.LogLevel
	}
	if flags.Changed("initial-pc") {
		cfg.InitialPC = flagCfg.InitialPC
	}

	if err := cfg.validate(); err != nil {
		return serveConfig{}, err
	}
	return cfg, nil
}
