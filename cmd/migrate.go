package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/persona"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and seed default personas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		seeded, err := persona.NewService(st).EnsureDefaults(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("migration complete",
			zap.String("driver", cfg.Store.Driver),
			zap.Int("personas_seeded", seeded),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
