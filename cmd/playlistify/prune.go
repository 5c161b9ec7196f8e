package main

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/internal/storage"
	"github.com/lborres/playlistify/services"
)

func newPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions whose access token expired long ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := storage.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions := services.NewSessionResolver(
				core.SessionConfig{MaxAge: cfg.SessionMaxAge},
				store, nil, nil, nil, log.Logger,
			)
			_, err = sessions.Prune(cmd.Context(), olderThan)
			return err
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", core.DefaultSessionMaxAge, "minimum time since the access token expired")
	return cmd
}
