package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rushteam/fraudkit/catalog"
	"github.com/rushteam/fraudkit/config"
	"github.com/rushteam/fraudkit/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gin.SetMode(cfg.Server.Mode)

			rt, err := config.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			cat, err := catalog.Load(rt.Resolver.BaseDir())
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			opts := []server.Option{server.WithMetrics(rt.Metrics)}
			if rt.Loader != nil {
				opts = append(opts, server.WithArtifactCache(rt.Loader))
			}
			srv := server.New(rt.Scorer, cat, opts...)
			return srv.Run(cmd.Context(), cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
