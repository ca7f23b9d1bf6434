package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/persona"
)

var personasFile string

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Manage buyer personas",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		svc, closeStore, err := personaService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		personas, err := svc.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDEFAULT\tCRITERIA")
		for _, p := range personas {
			fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", p.ID, p.Name, p.IsDefault, len(persona.Criteria(p)))
		}
		return w.Flush()
	},
}

var personasImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create or update custom personas from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		personas, err := persona.LoadFile(personasFile)
		if err != nil {
			return err
		}
		svc, closeStore, err := personaService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := svc.Import(cmd.Context(), personas)
		if err != nil {
			return err
		}
		zap.L().Info("personas imported", zap.String("file", personasFile), zap.Int("count", n))
		return nil
	},
}

var personasDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a custom persona that nothing references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := personaService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := svc.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		zap.L().Info("persona deleted", zap.String("persona_id", args[0]))
		return nil
	},
}

func init() {
	personasImportCmd.Flags().StringVar(&personasFile, "file", "", "path to a personas YAML file (required)")
	_ = personasImportCmd.MarkFlagRequired("file")

	personasCmd.AddCommand(personasListCmd, personasImportCmd, personasDeleteCmd)
	rootCmd.AddCommand(personasCmd)
}

// personaService opens the store and makes sure the defaults exist.
func personaService(cmd *cobra.Command) (*persona.Service, func(), error) {
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc := persona.NewService(st)
	if _, err := svc.EnsureDefaults(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return svc, func() { _ = st.Close() }, nil
}
