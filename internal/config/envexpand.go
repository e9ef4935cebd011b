package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's
// standard library, supporting both ${VAR} and $VAR syntax. Missing
// variables expand to empty string; validation catches the required
// fields that end up empty. Ported from the teacher's
// pkg/config/envexpand.go.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
