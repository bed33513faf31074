package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "List, create, restore and delete session checkpoints",
	Long: `Checkpoints are snapshots of the open tabs (paths, content and view state).
They are saved automatically before every tool that changes the project and can be
created by hand. Restoring replaces the open tabs with the snapshot; with --write the
snapshot content is also written back to disk.`,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()
		limit, _ := cmd.Flags().GetInt("limit")
		printCheckpoints(cmd.Context(), deps, limit)
		return nil
	},
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <name> <file>...",
	Short: "Snapshot the given files as a named checkpoint",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := openFiles(deps, args[1:]); err != nil {
			return err
		}
		id, err := deps.Checkpoints.Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Checkpoint %d saved", id)))
		return nil
	},
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid checkpoint id %q", args[0])
		}
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := requireProject(deps); err != nil {
			return err
		}

		cp, err := deps.Checkpoints.Restore(cmd.Context(), deps.Project, id)
		if err != nil {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Restored %q with %d files", cp.Name, len(cp.EditorState.OpenFiles))))

		if write, _ := cmd.Flags().GetBool("write"); write {
			failed := deps.Sessions.SaveAll()
			for path, err := range failed {
				fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Failed to write %s: %v", path, err)))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d files could not be written", len(failed))
			}
			fmt.Println(lipgloss.Green.Render("Snapshot content written to disk"))
		}
		return nil
	},
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid checkpoint id %q", args[0])
		}
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := deps.Checkpoints.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Checkpoint %d deleted", id)))
		return nil
	},
}

func init() {
	checkpointListCmd.Flags().Int("limit", 20, "Maximum number of checkpoints to list")
	checkpointRestoreCmd.Flags().Bool("write", false, "Write the restored content back to disk")
	checkpointCmd.AddCommand(checkpointListCmd, checkpointCreateCmd, checkpointRestoreCmd, checkpointDeleteCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func printCheckpoints(ctx context.Context, deps *RootDependencies, limit int) {
	checkpoints, err := deps.Checkpoints.List(ctx, limit)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(err.Error()))
		return
	}
	if len(checkpoints) == 0 {
		fmt.Println(lipgloss.Gray.Render("No checkpoints"))
		return
	}
	rows := pterm.TableData{{"ID", "Name", "Saved"}}
	for _, cp := range checkpoints {
		rows = append(rows, []string{
			strconv.FormatInt(cp.ID, 10),
			cp.Name,
			time.UnixMilli(cp.Timestamp).Format(time.DateTime),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(err.Error()))
		return
	}
	fmt.Println(out)
}
