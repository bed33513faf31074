package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the syntax analysis cache",
	Long: `The 'reset-cache' command removes all cached symbol tables in the data directory.
Use this command to clear a corrupted cache or after upgrading the grammars.
Checkpoints and the codebase index are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")

		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()

		handleResetCacheCommand(deps, force, stats)
		return nil
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(deps *RootDependencies, force bool, showStats bool) {
	cacheStats := deps.Analyzer.GetCacheStats()
	if enabled, ok := cacheStats["enabled"].(bool); !ok || !enabled {
		fmt.Println(lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return
	}

	if showStats {
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		if dir, ok := cacheStats["cache_dir"].(string); ok {
			fmt.Printf("  Cache Directory: %s\n", dir)
		}
		if files, ok := cacheStats["cache_files"].(int); ok {
			fmt.Printf("  Cached Files: %d\n", files)
		}
		if size, ok := cacheStats["total_size"].(int64); ok {
			fmt.Printf("  Total Size: %.2f MB\n", float64(size)/(1024*1024))
		}
		if hitRate, ok := cacheStats["hit_rate_percent"].(float64); ok {
			fmt.Printf("  Hit Rate: %.1f%%\n", hitRate)
		}
		return
	}

	if !force {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Are you sure you want to reset the analysis cache? (y/N): ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)
	spinnerInstance, _ := spinner.Start("Resetting analysis cache...")

	err := deps.Analyzer.ClearCache()
	utils.ClearIgnoreCache()

	_ = spinnerInstance.Stop()
	fmt.Print("\r")
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error resetting cache: %v", err)))
		return
	}
	fmt.Println(lipgloss.Green.Render("✓ Analysis cache has been reset"))
}
