// Package vcs wraps the minimal git plumbing the Progress Monitor needs to
// gauge whether a running pipeline job is actually producing a diff
// (spec.md §4.4: "diff growth" signal). Grounded on
// AbdelazizMoustafa10m/Raven's internal/git/client.go GitClient, trimmed to
// the working-tree statistics Shipwright consults rather than Raven's full
// branch/stash/push surface.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Stats summarizes the working tree's uncommitted change volume relative to
// HEAD, plus untracked file count (spec.md §4.4 diff-growth signal inputs).
type Stats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
	Untracked    int
}

// Total is the single scalar the Progress Monitor compares across
// snapshots to detect diff growth.
func (s Stats) Total() int {
	return s.Insertions + s.Deletions
}

// Client is the collaborator interface the Progress Monitor depends on.
type Client interface {
	WorkingTreeStats(ctx context.Context) (Stats, error)
}

// GitClient drives the git CLI via os/exec in a fixed working directory.
type GitClient struct {
	Dir    string
	GitBin string
}

// NewGitClient constructs a GitClient rooted at dir.
func NewGitClient(dir string) *GitClient {
	return &GitClient{Dir: dir, GitBin: "git"}
}

// WorkingTreeStats implements Client: uncommitted diff stat plus untracked
// file count, both computed against the working tree (not a ref range),
// since a running executor's output is, by definition, uncommitted.
func (g *GitClient) WorkingTreeStats(ctx context.Context) (Stats, error) {
	numstat, err := g.run(ctx, "diff", "--numstat", "HEAD")
	if err != nil {
		return Stats{}, fmt.Errorf("vcs: diff numstat: %w", err)
	}
	stats := parseNumStat(numstat)

	untracked, err := g.run(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return Stats{}, fmt.Errorf("vcs: ls-files untracked: %w", err)
	}
	stats.Untracked = countNonEmptyLines(untracked)

	return stats, nil
}

func parseNumStat(output string) Stats {
	var stats Stats
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}
		stats.FilesChanged++
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			stats.Insertions += n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			stats.Deletions += n
		}
	}
	return stats
}

func countNonEmptyLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func (g *GitClient) run(ctx context.Context, args ...string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", bin, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
