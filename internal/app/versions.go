package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <model>",
	Short: "Show a model's recorded versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	modelName := args[0]
	versions, err := store.ListVersions(cmd.Context(), modelName)
	if err != nil {
		return fmt.Errorf("list versions for %s: %w", modelName, err)
	}

	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintf(out, "No versions recorded for %s.\n", modelName)
		return nil
	}

	fmt.Fprintf(out, "%-32s %-12s %-10s %s\n", "VERSION", "STATUS", "SCORE", "CREATED")
	for i := range versions {
		v := &versions[i]
		score := "-"
		if v.Score != nil {
			score = fmt.Sprintf("%g", *v.Score)
		}
		fmt.Fprintf(out, "%-32s %-12s %-10s %s\n",
			v.VersionID, v.Status, score, v.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
