package app

import (
	"errors"
	"fmt"

	"model-training-service/internal/core/domain"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models with a recorded version history",
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	names, err := store.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No models recorded yet. Run 'trainctl run' first.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %-28s %-10s %s\n", "MODEL", "CURRENT VERSION", "SCORE", "VERSIONS")
	for _, name := range names {
		versions, err := store.ListVersions(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("list versions for %s: %w", name, err)
		}

		currentID, score := "-", "-"
		current, err := store.GetCurrentVersion(cmd.Context(), name)
		switch {
		case err == nil:
			currentID = current.VersionID
			if current.Score != nil {
				score = fmt.Sprintf("%g", *current.Score)
			}
		case errors.Is(err, domain.ErrVersionNotFound):
			// backups only, nothing promoted yet
		default:
			return fmt.Errorf("current version for %s: %w", name, err)
		}

		fmt.Fprintf(out, "%-24s %-28s %-10s %d\n", name, currentID, score, len(versions))
	}
	return nil
}
