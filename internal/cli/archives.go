package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/contextuse-go/internal/models"
)

var archivesStatus string

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "List ingested archives",
	Long: `List archives known to the store, newest first.

Examples:
  contextuse archives
  contextuse archives --status failed`,
	RunE: runArchives,
}

func init() {
	archivesCmd.Flags().StringVarP(&archivesStatus, "status", "s", "", "filter by status (created|completed|failed)")
}

func runArchives(cmd *cobra.Command, args []string) error {
	archives, err := st.ListArchives(cmd.Context(), models.ArchiveStatus(archivesStatus))
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}
	if len(archives) == 0 {
		fmt.Println("No archives found.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-9s  %s\n", "ID", "PROVIDER", "STATUS", "CREATED")
	for _, a := range archives {
		count, err := st.CountThreads(cmd.Context(), a.ID)
		if err != nil {
			return fmt.Errorf("count threads for %s: %w", a.ID, err)
		}
		fmt.Printf("%-36s  %-10s  %-9s  %s  (%d threads)\n",
			a.ID, a.Provider, a.Status, a.CreatedAt.Format("2006-01-02 15:04"), count)
	}
	return nil
}
