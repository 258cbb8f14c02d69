package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLineResetsFlagsPerLine(t *testing.T) {
	e := newTestEnv(t)
	a := e.newApp()
	e.mustRun(a, "env", "show", "-o", "json")
	saved := a.flags

	var out bytes.Buffer
	a.stdout, a.stderr = &out, &out
	ctx := context.Background()

	require.NoError(t, a.execLine(ctx, []string{"env", "set", "--empresa-id", "42", "-o", "json"}))
	assert.Contains(t, out.String(), `"empresaId": "42"`)

	out.Reset()
	require.NoError(t, a.execLine(ctx, []string{"env", "show"}))
	assert.Contains(t, out.String(), "Environment", "-o json does not leak into the next line")

	assert.Equal(t, saved, a.flags)
}

func TestExecLineRejectsNestedConsole(t *testing.T) {
	e := newTestEnv(t)
	a := e.newApp()
	e.mustRun(a, "env", "show")

	a.inREPL = true
	a.stdout, a.stderr = &bytes.Buffer{}, &bytes.Buffer{}

	err := a.execLine(context.Background(), []string{"console"})
	assert.ErrorIs(t, err, errNestedConsole)
}

func TestExecLineReturnsCommandErrors(t *testing.T) {
	e := newTestEnv(t)
	a := e.newApp()
	e.mustRun(a, "env", "show")

	var stderr bytes.Buffer
	a.stdout, a.stderr = &bytes.Buffer{}, &stderr

	err := a.execLine(context.Background(), []string{"occurrences", "list"})

	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
	assert.NotContains(t, stderr.String(), "Error:", "the console prints errors itself")
}

func TestCompletionsFor(t *testing.T) {
	items := completionsFor(newRootCmd(newApp()))

	byName := map[string][]string{}
	for _, item := range items {
		var children []string
		for _, c := range item.Children {
			children = append(children, c.Name)
		}
		byName[item.Name] = children
	}

	assert.NotContains(t, byName, "console")
	assert.NotContains(t, byName, "help")
	require.Contains(t, byName, "auth")
	assert.ElementsMatch(t, []string{"login", "status", "logout", "refresh", "whoami"}, byName["auth"])
	assert.Contains(t, byName, "call")
}
