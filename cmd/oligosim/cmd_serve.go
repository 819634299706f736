package main

import (
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/MJE43/oligopoly-sim-go/internal/api"
	"github.com/MJE43/oligopoly-sim-go/internal/config"
	"github.com/MJE43/oligopoly-sim-go/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}

			logger := log.New(os.Stdout, "[SERVE] ", log.LstdFlags)

			provider, release, err := buildProvider(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer release()

			db, err := store.NewSQLiteDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return err
			}

			srv := api.NewServer(db, provider)
			logger.Printf("agent=%s db=%s listening on %s", cfg.Agent, cfg.DBPath, cfg.Addr)
			return http.ListenAndServe(cfg.Addr, srv.Routes())
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides OLIGOSIM_ADDR)")
	return cmd
}
