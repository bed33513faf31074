package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the most recent tool calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := deps.Store.RecentAudit(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(lipgloss.Gray.Render("No tool calls recorded"))
			return nil
		}
		rows := pterm.TableData{{"Started", "Tool", "Status", "Duration", "Error"}}
		for _, e := range entries {
			rows = append(rows, []string{
				e.StartedAt.Format(time.DateTime),
				e.Tool,
				e.Status,
				strconv.FormatInt(e.DurationMs, 10) + "ms",
				e.Error,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	auditCmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	rootCmd.AddCommand(auditCmd)
}
