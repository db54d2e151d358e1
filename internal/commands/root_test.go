package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x.db")
	assert.Equal(t, abs, resolvePath("/srv/project", abs))
	assert.Equal(t, filepath.Join("/srv/project", "hibiscus.db"), resolvePath("/srv/project", "hibiscus.db"))
	assert.Equal(t, "", resolvePath("/srv/project", ""), "empty stays empty")
}

func TestParseStatementID(t *testing.T) {
	id, err := parseStatementID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-1", "x"} {
		_, err := parseStatementID(bad)
		assert.Error(t, err, bad)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{
		"init", "account", "invoice", "partner", "payment", "load", "run", "match", "prepare", "lines",
	}, names)
}
