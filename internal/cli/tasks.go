package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks <archive-id>",
	Short: "List ETL tasks for an archive",
	Long: `List the ETL tasks of one archive with their stage counters.

Example:
  contextuse tasks 6f1b2c3d-...`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	archiveID := args[0]

	if _, err := st.GetArchive(cmd.Context(), archiveID); err != nil {
		return fmt.Errorf("archive %s: %w", archiveID, err)
	}

	tasks, err := st.ListTasks(cmd.Context(), archiveID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	fmt.Printf("%-24s  %-12s  %9s  %11s  %8s  %s\n",
		"INTERACTION TYPE", "STATUS", "EXTRACTED", "TRANSFORMED", "UPLOADED", "SOURCE")
	for _, t := range tasks {
		fmt.Printf("%-24s  %-12s  %9d  %11d  %8d  %s\n",
			t.InteractionType, t.Status, t.ExtractedCount, t.TransformedCount, t.UploadedCount, t.SourceURI)
	}
	return nil
}
