package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <model>",
	Short: "Restore the model's previous version over the live artifact",
	Long: `Restore the most recent restorable version over the model's live
artifact. The demoted live artifact is snapshotted to a failed_<id> backup
first, so a bad promotion is never silently lost.

The model must appear in the job catalog; its artifact path tells the store
where the live artifact lives.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	modelName := args[0]

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registered := false
	for _, job := range catalog {
		if job.Name == modelName {
			store.RegisterModel(job.Name, job.ArtifactPath)
			registered = true
			break
		}
	}
	if !registered {
		return fmt.Errorf("model %q is not in the job catalog (set JOBS_FILE)", modelName)
	}

	restored, err := store.Rollback(cmd.Context(), modelName)
	if err != nil {
		return err
	}

	score := "unscored"
	if restored.Score != nil {
		score = fmt.Sprintf("score %g", *restored.Score)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s rolled back to %s (%s)\n", modelName, restored.VersionID, score)
	return nil
}
