package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var enrichContactID string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich and qualify a single contact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, "enrichment")
		if err != nil {
			return err
		}
		defer env.Close()

		q, err := env.Pipeline.EnrichContact(ctx, enrichContactID)
		if err != nil {
			return eris.Wrap(err, "enrich contact")
		}

		if q.BestMatch != nil {
			zap.L().Info("contact qualified",
				zap.String("contact_id", q.Contact.ID),
				zap.String("best_persona", q.BestMatch.PersonaID),
				zap.Float64("fit_score", q.BestMatch.FitScore),
				zap.String("tier", string(q.Profile.Tier)),
			)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichContactID, "contact", "", "contact id (required)")
	_ = enrichCmd.MarkFlagRequired("contact")
	rootCmd.AddCommand(enrichCmd)
}
