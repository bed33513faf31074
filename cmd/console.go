package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive the tools interactively",
	Long: `The 'console' command keeps one editor session alive and reads tool calls from
the prompt, one per line: the tool name followed by an optional JSON object of arguments,
for example: read_file {"filename": "main.go"}

Tabs and the file tree are redrawn after every change. Type /help for session commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd, os.Stdout)
		if err != nil {
			return err
		}
		defer deps.Close()
		handleConsoleCommand(deps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func handleConsoleCommand(deps *RootDependencies) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	reader := bufio.NewReader(os.Stdin)
	fmt.Println(lipgloss.BoxStyle.Render("/help  Help for console commands"))
	fmt.Println(lipgloss.Gray.Render("Project: " + projectLabel(deps)))

	for {
		input, err := utils.InputPromptWithContext(ctx, os.Stdout, reader)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, utils.ErrInputClosed) {
				fmt.Println(lipgloss.Yellow.Render("Exiting..."))
				saveOnExit(deps)
				return
			}
			fmt.Println(lipgloss.Red.Render(err.Error()))
			continue
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if exit := findConsoleCommand(ctx, input, deps); exit {
				saveOnExit(deps)
				return
			}
			continue
		}

		call, err := parseToolLine(input)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			continue
		}

		running, _ := spinner.Start(fmt.Sprintf("Running %s...", call.Name))
		resp := deps.Executor.Execute(ctx, call, deps.Project)
		if running != nil {
			_ = running.Stop()
		}
		if err := printResponse(ctx, resp, deps.Config.Theme); err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
		}
	}
}

// parseToolLine splits `name {json}` into a tool call.
func parseToolLine(line string) (models.ToolCall, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	call := models.ToolCall{Name: name, Args: map[string]any{}}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return call, nil
	}
	if err := json.Unmarshal([]byte(rest), &call.Args); err != nil {
		return call, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return call, nil
}

// parseRange reads "line:col-line:col" with 1-based positions.
func parseRange(s string) (models.Range, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return models.Range{}, fmt.Errorf("expected line:col-line:col, got %q", s)
	}
	start, err := parsePosition(from)
	if err != nil {
		return models.Range{}, err
	}
	end, err := parsePosition(to)
	if err != nil {
		return models.Range{}, err
	}
	return models.Range{Start: start, End: end}, nil
}

func parsePosition(s string) (models.Position, error) {
	l, c, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return models.Position{}, fmt.Errorf("expected line:col, got %q", s)
	}
	line, err := strconv.Atoi(l)
	if err != nil {
		return models.Position{}, fmt.Errorf("invalid line %q", l)
	}
	col, err := strconv.Atoi(c)
	if err != nil {
		return models.Position{}, fmt.Errorf("invalid column %q", c)
	}
	return models.Position{Line: line, Column: col}, nil
}

func saveOnExit(deps *RootDependencies) {
	for path, err := range deps.Sessions.SaveAll() {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Failed to save %s: %v", path, err)))
	}
}

func findConsoleCommand(ctx context.Context, command string, deps *RootDependencies) bool {
	name, arg, _ := strings.Cut(command, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		helps := "/tools  List the tools\n" +
			"/open <file>  Open a file in a new tab\n" +
			"/close <file>  Close a tab\n" +
			"/tabs  Show open tabs\n" +
			"/select <l:c-l:c>  Select text in the active tab\n" +
			"/tree  Show the project tree\n" +
			"/save  Save the active tab\n" +
			"/save-all  Save every tab\n" +
			"/checkpoint <name>  Save a checkpoint of the open tabs\n" +
			"/checkpoints  List checkpoints\n" +
			"/restore <id>  Restore a checkpoint\n" +
			"/stats  Analyzer cache statistics\n" +
			"/clear  Clear screen\n" +
			"/exit  Save all tabs and exit"
		fmt.Println(lipgloss.BoxStyle.Render(helps))
	case "/tools":
		printToolList()
	case "/open":
		if err := openFiles(deps, []string{arg}); err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
		}
	case "/close":
		if !deps.Sessions.IsOpen(arg) {
			fmt.Println(lipgloss.Yellow.Render(arg + " is not open"))
			break
		}
		deps.Sessions.Close(arg)
	case "/tabs":
		paths := deps.Sessions.Paths()
		if len(paths) == 0 {
			fmt.Println(lipgloss.Gray.Render("No open tabs"))
		}
		for _, p := range paths {
			marker := " "
			if p == deps.Sessions.ActivePath() {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p)
		}
	case "/select":
		r, err := parseRange(arg)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			break
		}
		deps.Workbench.SetSelection(r)
	case "/tree":
		if err := requireProject(deps); err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			break
		}
		if err := deps.Tree.RefreshTree(deps.Project); err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
		}
	case "/save":
		if err := deps.Sessions.SaveActive(); err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			break
		}
		fmt.Println(lipgloss.Green.Render("Saved"))
	case "/save-all":
		failed := deps.Sessions.SaveAll()
		for path, err := range failed {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Failed to save %s: %v", path, err)))
		}
		if len(failed) == 0 {
			fmt.Println(lipgloss.Green.Render("Saved all tabs"))
		}
	case "/checkpoint":
		if arg == "" {
			arg = "Manual checkpoint"
		}
		id, err := deps.Checkpoints.Create(ctx, arg)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			break
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Checkpoint %d saved", id)))
	case "/checkpoints":
		printCheckpoints(ctx, deps, 20)
	case "/restore":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Println(lipgloss.Red.Render("Usage: /restore <id>"))
			break
		}
		if err := requireProject(deps); err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			break
		}
		cp, err := deps.Checkpoints.Restore(ctx, deps.Project, id)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(err.Error()))
			break
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Restored %q", cp.Name)))
	case "/stats":
		printCacheStats(deps)
	case "/clear":
		fmt.Print("\033[2J\033[H")
	case "/exit":
		return true
	default:
		fmt.Println(lipgloss.Yellow.Render("Unknown command " + name + ", type /help"))
	}
	return false
}

func printCacheStats(deps *RootDependencies) {
	stats := deps.Analyzer.GetCacheStats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, stats[k])
	}
}
