package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/checkpoint"
	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer"
	analyzerContracts "github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/config"
	"github.com/yapweijun1996/AI-Code-Editor-v13/editor"
	"github.com/yapweijun1996/AI-Code-Editor-v13/filesystem"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/indexer"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/network"
	"github.com/yapweijun1996/AI-Code-Editor-v13/session"
	"github.com/yapweijun1996/AI-Code-Editor-v13/store"
	"github.com/yapweijun1996/AI-Code-Editor-v13/tools"
)

// RootDependencies is everything a subcommand needs, built once from the config.
type RootDependencies struct {
	Config      *config.Config
	Cwd         string
	Project     fsContracts.IFileSystem
	Store       *store.Store
	Analyzer    analyzerContracts.ICodeAnalyzer
	Workbench   *editor.Workbench
	Sessions    *session.Manager
	Checkpoints *checkpoint.Interceptor
	Indexer     *indexer.Indexer
	Tree        *tools.TerminalTree
	Executor    *tools.Executor
}

// Close releases the editor and the database.
func (d *RootDependencies) Close() {
	if d.Workbench != nil {
		d.Workbench.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}

var rootCmd = &cobra.Command{
	Use:   "ai-code-editor",
	Short: "Headless runtime for an AI coding assistant",
	Long: `ai-code-editor runs the tools a language model uses to work on a project folder:
reading and writing files, searching, indexing, running commands and editing buffers
in an in-process editor with diagnostics, tabs and automatic checkpoints.

Use 'serve' to expose the tools to an MCP client over stdio, 'tool' to run a single
tool call, or 'console' for an interactive session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Println(config.DefaultConfig.Version)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// handleRootCommand loads the configuration and wires every collaborator.
// Tabs and the file tree are drawn to ui; a nil ui draws nothing.
func handleRootCommand(cmd *cobra.Command, ui io.Writer) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	cfg, err := config.LoadConfigs(rootCmd, cwd)
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	deps := &RootDependencies{Config: cfg, Cwd: cwd}

	if cfg.ProjectRoot != "" {
		project, err := filesystem.NewLocal(cfg.ProjectRoot)
		if err != nil {
			return nil, err
		}
		deps.Project = project
	}

	deps.Store, err = store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	cacheDir := ""
	if cfg.EnableCache {
		cacheDir = cfg.CacheDir()
	}
	deps.Analyzer = code_analyzer.NewCodeAnalyzer(cacheDir)
	deps.Workbench = editor.NewWorkbench(editor.AnalyzerValidator(deps.Analyzer))

	var tabs session.TabRenderer
	if ui != nil {
		tabs = session.NewLipglossTabs(ui)
	}
	deps.Sessions = session.NewManager(session.NewSession(), deps.Workbench, tabs)
	deps.Checkpoints = checkpoint.NewInterceptor(deps.Store, deps.Sessions, tools.CheckpointTriggers)
	deps.Indexer = indexer.New(deps.Store, deps.Analyzer)
	deps.Tree = tools.NewTerminalTree(ui)

	dispatcher := tools.NewDispatcher(tools.Dependencies{
		Sessions:         deps.Sessions,
		Editor:           deps.Workbench,
		Analyzer:         deps.Analyzer,
		Indexer:          deps.Indexer,
		URLReader:        network.NewURLReader(cfg.Network.Timeout, cfg.Network.UserAgent),
		Searcher:         network.NewDuckDuckGo(cfg.Network.SearchURL, cfg.Network.Timeout, cfg.Network.UserAgent),
		Terminal:         network.NewTerminal(cfg.Terminal.Shell, cfg.Terminal.Timeout),
		Tree:             deps.Tree,
		ReadFileMaxChars: cfg.ReadFileMaxChars,
	})
	deps.Executor = tools.NewExecutor(dispatcher, deps.Checkpoints, deps.Store, tools.DiagnosticsOptions{
		SettleDelay: cfg.Diagnostics.SettleDelay,
		Timeout:     cfg.Diagnostics.Timeout,
	})

	return deps, nil
}

// requireProject fails commands that only make sense inside a project.
func requireProject(deps *RootDependencies) error {
	if deps.Project == nil {
		return fmt.Errorf("no project folder is open: pass --project or set project_root")
	}
	return nil
}
