package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overlays the recognized environment variables (spec.md §6) onto a
// resolved SystemConfig. Environment variables take precedence over YAML,
// mirroring the teacher's getEnv(key, defaultValue) convention in
// cmd/tarsy/main.go, generalized into a single overlay pass instead of
// scattered os.Getenv calls.
func ApplyEnv(sys *SystemConfig, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv("WATCH_LABEL"); v != "" {
		sys.WatchLabel = v
	}
	if v := getenv("MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sys.MaxParallel = n
		}
	}
	if v := getenv("POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sys.PollInterval = time.Duration(n) * time.Second
		}
	}
	if v := getenv("PIPELINE_TEMPLATE"); v != "" {
		sys.DefaultTemplate = v
	}
	if v := getenv("AUTO_TEMPLATE"); v != "" {
		sys.AutoTemplate = truthy(v)
	}
	if v := getenv("ADAPTIVE_THRESHOLDS_ENABLED"); v != "" {
		sys.AdaptiveThresholds = truthy(v)
	}
	if v := getenv("PRIORITY_LANE_LABELS"); v != "" {
		sys.PriorityLaneLabels = splitCSV(v)
	}
	if v := getenv("DASHBOARD_URL"); v != "" {
		if sys.Dashboard == nil {
			sys.Dashboard = &DashboardConfig{}
		}
		sys.Dashboard.URL = v
	}
	if v := getenv("NO_GITHUB"); v != "" {
		sys.NoGitHub = truthy(v)
	}
	if v := getenv("CI_MODE"); v != "" {
		sys.CIMode = truthy(v)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
