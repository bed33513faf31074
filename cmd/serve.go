package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yapweijun1996/AI-Code-Editor-v13/filesystem"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/mcpserver"
)

const watchDebounce = 300 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editor tools to an MCP client over stdio",
	Long: `The 'serve' command starts a Model Context Protocol server on stdin/stdout.
Every tool is registered with a JSON schema of its parameters. Logs go to stderr.
When a project is open, external changes to it refresh the file tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd, nil)
		if err != nil {
			return err
		}
		defer deps.Close()
		return handleServeCommand(deps)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func handleServeCommand(deps *RootDependencies) error {
	logger := logging.NewLogger("serve")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if deps.Project != nil {
		project := deps.Project
		watcher, err := filesystem.NewWatcher(project.Root(), watchDebounce, func(path string) {
			logger.WithField("path", path).Debug("Project changed on disk")
			if err := deps.Tree.RefreshTree(project); err != nil {
				logger.WithError(err).Warn("Failed to refresh file tree")
			}
		})
		if err != nil {
			logger.WithError(err).Warn("File watching disabled")
		} else {
			defer watcher.Close()
			go watcher.Start(ctx)
		}
	}

	srv, err := mcpserver.NewServer(deps.Executor, func() fsContracts.IFileSystem { return deps.Project }, deps.Config.Version)
	if err != nil {
		return fmt.Errorf("failed to build MCP server: %w", err)
	}
	logger.WithField("project", projectLabel(deps)).Info("Serving tools over stdio")
	return mcpserver.Serve(srv)
}

func projectLabel(deps *RootDependencies) string {
	if deps.Project == nil {
		return "(none)"
	}
	return deps.Project.Root()
}
