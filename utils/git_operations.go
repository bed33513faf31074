package utils

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// GitOperations handles git-related operations
type GitOperations struct {
	workingDir string
}

// CommitInfo is one entry of a file's history.
type CommitInfo struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

// ErrNotGitRepo is returned when the working directory is not inside a repository.
var ErrNotGitRepo = errors.New("not a git repository")

// NewGitOperations creates a new GitOperations instance
func NewGitOperations(workingDir string) *GitOperations {
	return &GitOperations{workingDir: workingDir}
}

// CheckGitRepo checks if the working directory is a git repository
func (g *GitOperations) CheckGitRepo(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = g.workingDir
	if err := cmd.Run(); err != nil {
		return ErrNotGitRepo
	}
	return nil
}

// FileHistory returns up to limit commits touching filename, following renames.
func (g *GitOperations) FileHistory(ctx context.Context, filename string, limit int) ([]CommitInfo, error) {
	if err := g.CheckGitRepo(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	cmd := exec.CommandContext(ctx, "git", "log", "--follow",
		fmt.Sprintf("--max-count=%d", limit), "--pretty=format:%H|%an|%ai|%s", "--", filename)
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", filename, err)
	}
	return parseCommitLines(string(output)), nil
}

// GetBranchName returns the current branch name
func (g *GitOperations) GetBranchName(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get branch name: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func parseCommitLines(output string) []CommitInfo {
	var commits []CommitInfo
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 {
			continue
		}
		commits = append(commits, CommitInfo{Hash: parts[0], Author: parts[1], Date: parts[2], Subject: parts[3]})
	}
	return commits
}

// FormatHistory renders commits one per line with a short hash.
func FormatHistory(filename string, commits []CommitInfo) string {
	if len(commits) == 0 {
		return fmt.Sprintf("No history found for %s", filename)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "History for %s:\n", filename)
	for _, c := range commits {
		hash := c.Hash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		fmt.Fprintf(&b, "- %s %s (%s, %s)\n", hash, c.Subject, c.Author, c.Date)
	}
	return strings.TrimRight(b.String(), "\n")
}
