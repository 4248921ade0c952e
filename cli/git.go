package cli

// This file contains Git integration for tagging recorded runs with the
// revision of the working directory.

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tongsgo/tongs/model"
)

func gitOutput(ctx context.Context, args ...string) (string, error) {
	output, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// gitInfo returns the commit and branch of the working directory, or an
// error outside a repository.
func gitInfo(ctx context.Context) (*model.Git, error) {
	commit, err := gitOutput(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	branch, err := gitOutput(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	return &model.Git{Commit: commit, Branch: branch}, nil
}
