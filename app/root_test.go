package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := RootCmd()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"check", "verify-quote", "monitor", "version"} {
		require.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := RootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), Version)
}

func TestVerifyQuoteCmd_MissingFile(t *testing.T) {
	cmd := RootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"verify-quote", "/nonexistent/quote.b64"})
	require.Error(t, cmd.Execute())
}
