// Package vcs snapshots the notes directory into a local git repository.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// LogLimit is the number of commits Log returns by default.
const LogLimit = 50

// Commit is one entry of the repository log.
type Commit struct {
	Hash    string `json:"hash"`
	Date    string `json:"date"` // yyyy-MM-dd
	Message string `json:"message"`
}

// Git runs the git binary inside the notes directory.
type Git struct {
	dir    string
	binary string
	logger *slog.Logger
}

// Open prepares dir for snapshots, running git init when it is not yet a
// repository.
func Open(ctx context.Context, dir, binary string, logger *slog.Logger) (*Git, error) {
	if binary == "" {
		binary = "git"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("vcs: %w", err)
	}
	g := &Git{dir: dir, binary: binary, logger: logger}

	if _, err := os.Stat(filepath.Join(dir, ".git")); errors.Is(err, os.ErrNotExist) {
		if _, err := g.run(ctx, "init"); err != nil {
			return nil, err
		}
		logger.Info("vcs: initialised repository", slog.String("dir", dir))
	}
	return g, nil
}

// Commit stages everything in the directory and commits it. Nothing staged
// is not an error.
func (g *Git) Commit(ctx context.Context, message string) error {
	if _, err := g.run(ctx, "add", "."); err != nil {
		return err
	}
	// diff --cached --quiet exits 0 when the index matches HEAD.
	if _, err := g.run(ctx, "diff", "--cached", "--quiet"); err == nil {
		g.logger.Debug("vcs: nothing to commit")
		return nil
	}

	args := []string{"commit", "-m", message}
	if _, err := g.run(ctx, "config", "user.email"); err != nil {
		args = append([]string{"-c", "user.name=miding", "-c", "user.email=miding@localhost"}, args...)
	}
	if _, err := g.run(ctx, args...); err != nil {
		return err
	}
	g.logger.Info("vcs: committed", slog.String("message", message))
	return nil
}

// Log returns up to limit recent commits, newest first. A repository without
// commits yields an empty log.
func (g *Git) Log(ctx context.Context, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = LogLimit
	}
	if _, err := g.run(ctx, "rev-parse", "--verify", "-q", "HEAD"); err != nil {
		return []Commit{}, nil
	}
	out, err := g.run(ctx, "log", "--pretty=format:%h|%ad|%s", "--date=short", "-n", strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []Commit {
	commits := []Commit{}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
		if len(parts) < 3 {
			continue
		}
		commits = append(commits, Commit{Hash: parts[0], Date: parts[1], Message: parts[2]})
	}
	return commits
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("vcs: git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("vcs: git %s: %w: %s", args[0], err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
