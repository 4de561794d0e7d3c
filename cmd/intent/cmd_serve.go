package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/shahar-caura/supportintent/internal/metrics"
	"github.com/shahar-caura/supportintent/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the classification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			clf, err := c.classifier(cfg, logger, metrics.New(reg))
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				Version:      version,
				Batch:        intent.BatchOptions{Parallel: cfg.Batch.Parallel, MaxWorkers: cfg.Batch.MaxWorkers},
				Gatherer:     reg,
				Alert:        wireAlert(cfg, "intent serve", logger),
			}, clf, logger)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override server.addr")

	return cmd
}
