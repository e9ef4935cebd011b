package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecute_UnknownCommandExitsOne(t *testing.T) {
	code := Execute([]string{"not-a-real-subcommand"})
	assert.Equal(t, 1, code)
}

func TestExecute_MissingRequiredFlagExitsOne(t *testing.T) {
	code := Execute([]string{"triage", "show"})
	assert.Equal(t, 1, code)
}

func TestNewRootCmd_RegistersAllSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"daemon", "pipeline", "triage", "regression", "hygiene", "__run-job"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
