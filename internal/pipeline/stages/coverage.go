package stages

import (
	"context"
	"regexp"
	"strconv"

	"github.com/shipwright-run/shipwright/internal/executor"
)

// coveragePatterns extracts a percentage figure from test-runner output
// across the formats spec.md §4.3 names for the test stage: "jest/vitest,
// pytest, go, cargo". Each fires on the first match; order doesn't matter
// since the patterns are format-specific and won't cross-match.
var coveragePatterns = []*regexp.Regexp{
	regexp.MustCompile(`All files\s*\|\s*([\d.]+)`),                 // jest/vitest coverage table
	regexp.MustCompile(`TOTAL\s+\d+\s+\d+\s+([\d.]+)%`),             // pytest-cov summary line
	regexp.MustCompile(`coverage:\s*([\d.]+)% of statements`),       // go test -cover
	regexp.MustCompile(`(?i)lines\.*:\s*([\d.]+)%`),                 // cargo-tarpaulin
}

// ParseCoverage scans test output for a coverage percentage using the
// known formats. Returns ok=false if none match.
func ParseCoverage(output string) (pct float64, ok bool) {
	for _, re := range coveragePatterns {
		m := re.FindStringSubmatch(output)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// ParseCoverageWithFallback tries the regex patterns first and, only if
// none match, asks the executor to extract a coverage percentage from the
// raw output (spec.md §4.3: "optional LLM fallback parse if patterns
// miss").
func ParseCoverageWithFallback(ctx context.Context, exec executor.Executor, worktree, output string) (pct float64, ok bool) {
	if v, matched := ParseCoverage(output); matched {
		return v, true
	}
	if exec == nil {
		return 0, false
	}
	prompt := "Extract the test coverage percentage from this test output. " +
		"Reply with only a number (e.g. 87.5), or 'none' if no coverage figure is present.\n\n" + output
	res, err := exec.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: worktree})
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(firstToken(res.Stdout), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstToken(s string) string {
	start, end := -1, len(s)
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			if start < 0 {
				start = i
			}
		default:
			if start >= 0 {
				end = i
				return s[start:end]
			}
		}
	}
	if start < 0 {
		return ""
	}
	return s[start:end]
}
