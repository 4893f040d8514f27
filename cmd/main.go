package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/ManouchehrRasoulli/hotserve/pkg"
	"github.com/ManouchehrRasoulli/hotserve/pkg/client"
	"github.com/ManouchehrRasoulli/hotserve/pkg/filehandler"
	"github.com/ManouchehrRasoulli/hotserve/pkg/logger"
	"github.com/ManouchehrRasoulli/hotserve/pkg/server"
	"github.com/spf13/cobra"
)

var (
	configFile     string
	address        string
	fallback       string
	metricsAddress string
	logLevel       string
	pretty         bool
)

var rootCmd = &cobra.Command{
	Use:   "hotserve [root]",
	Short: "Static file server with live change notification",
	Long: `hotserve serves a directory over HTTP and pushes file changes to
connected browsers.

  GET /@hot-notify            server-sent change events
  GET /@hot-index             JSON list of served files
  GET /@hot-glob?pattern=...  matched files streamed in one response`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "specify configuration file for service.")
	rootCmd.Flags().StringVarP(&address, "address", "a", "", "listen address.")
	rootCmd.Flags().StringVar(&fallback, "fallback", "", "default page served when nothing else matches.")
	rootCmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "serve prometheus metrics on this address.")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error).")
	rootCmd.Flags().BoolVar(&pretty, "pretty", true, "human readable log output.")

	listenCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error).")
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen <url>",
	Short: "Print change events from a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lg := logger.New(logger.Config{Level: logLevel, Pretty: true}, os.Stderr)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := client.NewClient(args[0], client.WithLogger(lg))
		return c.Run(ctx, func(e internal.WatchEvent) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t/%s\n", e.Kind, e.Path)
		})
	},
}

// loadConfig reads the optional config file and applies flags on top of it.
func loadConfig(cmd *cobra.Command, args []string) (*pkg.Config, error) {
	cfg := pkg.DefaultConfig()
	if configFile != "" {
		c, err := pkg.ReadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file %s: %w", configFile, err)
		}
		cfg = *c
	}

	flags := cmd.Flags()
	if len(args) == 1 {
		cfg.Root = args[0]
	}
	if flags.Changed("address") {
		cfg.Address = address
	}
	if flags.Changed("fallback") {
		cfg.Fallback = fallback
	}
	if flags.Changed("metrics-address") {
		cfg.MetricsAddress = metricsAddress
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = pretty
	}

	return &cfg, cfg.Validate()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	lg := logger.New(cfg.Log, os.Stderr)
	lg.Info().Str("config", configFile).Str("root", cfg.Root).Msg("hotserve :: start")

	files, err := filehandler.NewHandler(cfg.Root, cfg.Fallback, lg)
	if err != nil {
		lg.Error().Err(err).Msg("hotserve :: initiating file handler")
		return err
	}

	srv, err := server.NewServer(*cfg, files, lg)
	if err != nil {
		return err
	}
	if err = srv.Listen(); err != nil {
		lg.Error().Err(err).Str("address", cfg.Address).Msg("hotserve :: listen")
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := <-quit
		lg.Info().Str("signal", sig.String()).Msg("hotserve :: shutting down")
		if err := srv.Close(); err != nil {
			lg.Warn().Err(err).Msg("hotserve :: shutdown")
		}
	}()

	if err = srv.Run(); err != nil {
		lg.Error().Err(err).Msg("hotserve :: running http server")
		_ = srv.Close()
		return err
	}

	<-stopped
	lg.Info().Msg("hotserve :: stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hotserve :", err)
		os.Exit(1)
	}
}
