package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandResult is the captured outcome of a shell command.
type CommandResult struct {
	Output   string
	ExitCode int
}

// CommandExecutor runs shell commands inside the project folder
type CommandExecutor struct {
	shell string
}

// NewCommandExecutor creates a new command executor instance
func NewCommandExecutor(shell string) *CommandExecutor {
	if shell == "" {
		shell = "bash"
	}
	return &CommandExecutor{shell: shell}
}

// ExecuteCommand runs command in dir and returns its combined output.
// A non-zero exit is reported through CommandResult.ExitCode, not as an error.
func (ce *CommandExecutor) ExecuteCommand(ctx context.Context, dir, command string) (*CommandResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("empty command provided")
	}

	if err := ce.validateCommand(command); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, ce.shell, "-c", command)
	}
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("command interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandResult{Output: out.String(), ExitCode: exitErr.ExitCode()}, nil
		}
		return nil, fmt.Errorf("command execution failed: %w", err)
	}

	return &CommandResult{Output: out.String()}, nil
}

// validateCommand performs security checks on the proposed command
func (ce *CommandExecutor) validateCommand(command string) error {
	dangerousPatterns := []string{
		"rm -rf /",
		":(){ :|:& };:", // Fork bomb
		"> /dev/sda",    // Disk overwrite
		"wipefs",
		"fdisk",
		"mkfs",
		"dd if=",
	}

	cmdLower := strings.ToLower(command)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(cmdLower, strings.ToLower(pattern)) {
			return fmt.Errorf("potentially dangerous command detected: %s", pattern)
		}
	}

	return nil
}
