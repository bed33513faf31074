package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/tools"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
)

// errToolFailed makes the process exit non-zero after the response was printed.
var errToolFailed = errors.New("tool call failed")

var toolCmd = &cobra.Command{
	Use:   "tool [name]",
	Short: "Run a single tool call and print its response",
	Long: `Run one tool call against the project and print the JSON response.
Arguments are passed as a JSON object with --args. Files given with --open are
opened in the editor first, so tools that work on the active document can be used.
run_terminal_command asks for confirmation unless --yes is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			printToolList()
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("tool name is required (use --list to see the tools)")
		}
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()
		return RunTool(cmd, deps, args[0])
	},
}

func init() {
	toolCmd.Flags().String("args", "{}", "Tool arguments as a JSON object")
	toolCmd.Flags().StringSlice("open", nil, "Files to open in the editor before the call")
	toolCmd.Flags().BoolP("yes", "y", false, "Run terminal commands without confirmation")
	toolCmd.Flags().Bool("list", false, "List the available tools")
	rootCmd.AddCommand(toolCmd)
}

func printToolList() {
	for _, name := range tools.AllNames {
		fmt.Printf("%s  %s\n", lipgloss.BlueSky.Render(fmt.Sprintf("%-32s", name)), tools.Descriptions[name])
	}
}

func RunTool(cmd *cobra.Command, deps *RootDependencies, name string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rawArgs, _ := cmd.Flags().GetString("args")
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
		return fmt.Errorf("--args must be a JSON object: %w", err)
	}

	open, _ := cmd.Flags().GetStringSlice("open")
	if err := openFiles(deps, open); err != nil {
		return err
	}

	if tools.Name(name) == tools.ToolRunTerminalCommand {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			command, _ := toolArgs["command"].(string)
			if !confirm(fmt.Sprintf("Run %q in %s?", command, projectLabel(deps))) {
				fmt.Println(lipgloss.Yellow.Render("Command execution cancelled."))
				return nil
			}
		}
	}

	resp := deps.Executor.Execute(ctx, models.ToolCall{Name: name, Args: toolArgs}, deps.Project)
	if err := printResponse(ctx, resp, deps.Config.Theme); err != nil {
		return err
	}
	if resp.Failed() {
		return errToolFailed
	}
	return nil
}

func openFiles(deps *RootDependencies, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := requireProject(deps); err != nil {
		return err
	}
	for _, p := range paths {
		handle, err := deps.Project.Resolve(p, false)
		if err != nil {
			return err
		}
		if err := deps.Sessions.Open(handle.Path(), handle, true); err != nil {
			return err
		}
	}
	return nil
}

func printResponse(ctx context.Context, resp models.ToolResponse, theme string) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(string(data))
		return nil
	}
	if err := utils.RenderHighlighted(ctx, os.Stdout, string(data), "json", theme); err != nil {
		fmt.Println(string(data))
	}
	return nil
}

func confirm(question string) bool {
	fmt.Print(question + " [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
