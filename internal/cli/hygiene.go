package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

// newHygieneCmd registers the hygiene command group, the CLI surface's
// named example of a maintenance sweep independent of the per-issue
// pipeline (spec.md §6 CLI surface: "hygiene platform-refactor"). Grounded
// on AbdelazizMoustafa10m/Raven's doublestar-based path filtering, applied
// here to select which files a platform-wide refactor issue should touch.
func newHygieneCmd(gf *globalFlags) *cobra.Command {
	var include []string
	var exclude []string
	var root string

	cmd := &cobra.Command{
		Use:   "hygiene",
		Short: "repo-wide maintenance sweeps",
	}

	refactor := &cobra.Command{
		Use:   "platform-refactor",
		Short: "list files matching --include (minus --exclude) as the candidate set for a platform-refactor issue",
		RunE: func(c *cobra.Command, args []string) error {
			if len(include) == 0 {
				include = []string{"**/*.go"}
			}
			matches, err := sweepFiles(root, include, exclude)
			if err != nil {
				return err
			}
			fmt.Printf("platform-refactor candidate set (%d files):\n", len(matches))
			for _, m := range matches {
				fmt.Println(" ", m)
			}
			return nil
		},
	}
	refactor.Flags().StringVar(&root, "root", ".", "repository root to sweep")
	refactor.Flags().StringSliceVar(&include, "include", nil, "doublestar glob patterns to include (default **/*.go)")
	refactor.Flags().StringSliceVar(&exclude, "exclude", []string{"**/vendor/**", "**/node_modules/**", "**/.git/**"}, "doublestar glob patterns to exclude")

	cmd.AddCommand(refactor)
	return cmd
}

// sweepFiles walks root and returns every file whose root-relative path
// matches any include pattern and no exclude pattern.
func sweepFiles(root string, include, exclude []string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(exclude, rel) {
			return nil
		}
		if matchesAny(include, rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	return matches, err
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
