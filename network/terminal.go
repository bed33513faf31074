package network

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/network/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
)

const maxTerminalOutput = 30000

// Terminal runs commands through the shell executor with a timeout.
type Terminal struct {
	executor *utils.CommandExecutor
	timeout  time.Duration
	logger   *logrus.Entry
}

func NewTerminal(shell string, timeout time.Duration) contracts.ITerminal {
	return &Terminal{
		executor: utils.NewCommandExecutor(shell),
		timeout:  timeout,
		logger:   logging.NewLogger("terminal"),
	}
}

// Run reports a non-zero exit as an error status carrying the output.
func (t *Terminal) Run(ctx context.Context, dir, command string) (models.ServiceResponse, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	started := time.Now()
	res, err := t.executor.ExecuteCommand(ctx, dir, command)
	if err != nil {
		return models.ServiceResponse{}, err
	}
	t.logger.WithFields(logrus.Fields{
		"exit":     res.ExitCode,
		"duration": time.Since(started).Round(time.Millisecond),
	}).Infof("Ran %q", command)

	output := res.Output
	if len(output) > maxTerminalOutput {
		output = output[len(output)-maxTerminalOutput:]
		output = "... (output truncated)\n" + output
	}
	if res.ExitCode != 0 {
		return models.ServiceResponse{
			Status:  StatusError,
			Output:  output,
			Message: fmt.Sprintf("command exited with status %d", res.ExitCode),
		}, nil
	}
	if strings.TrimSpace(output) == "" {
		output = "(no output)"
	}
	return models.ServiceResponse{Status: StatusSuccess, Output: output}, nil
}
