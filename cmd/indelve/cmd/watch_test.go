package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indelve/indelve/pkg/provider"
	"github.com/indelve/indelve/pkg/provider/providertest"
)

type rootedStub struct {
	*providertest.Stub
	roots []string
}

func (r rootedStub) Roots() []string { return r.roots }

// Ignored skips names starting with "tmp".
func (r rootedStub) Ignored(path string, _ bool) bool {
	return strings.HasPrefix(filepath.Base(path), "tmp")
}

type dirsStub struct {
	*providertest.Stub
	dirs []string
}

func (d dirsStub) Dirs() []string { return d.dirs }

func TestWatchTargets(t *testing.T) {
	// Given: a provider with roots, one with dirs and one with neither
	loaded := map[string]provider.Provider{
		"files": rootedStub{Stub: providertest.New("files"), roots: []string{"/b", "/a"}},
		"apps":  dirsStub{Stub: providertest.New("apps"), dirs: []string{"/c", "/a"}},
		"calc":  providertest.New("calc"),
	}

	// When: collecting the watch targets
	roots, ignore := watchTargets(loaded)

	// Then: roots are merged, sorted and unique, and ignore delegates
	assert.Equal(t, []string{"/a", "/b", "/c"}, roots)
	require.NotNil(t, ignore)
	assert.True(t, ignore("/a/tmpfile", false))
	assert.False(t, ignore("/a/notes.txt", false))
}

func TestWatchTargets_NoIgnorer(t *testing.T) {
	loaded := map[string]provider.Provider{
		"apps": dirsStub{Stub: providertest.New("apps"), dirs: []string{"/x"}},
	}

	roots, ignore := watchTargets(loaded)

	assert.Equal(t, []string{"/x"}, roots)
	assert.Nil(t, ignore)
}

func TestWatch_NothingToWatch(t *testing.T) {
	// Given: providers without directories
	isolate(t)
	alpha, _, reg := twoStubs()

	// When: starting watch
	res := run(t, reg, "watch")

	// Then: it fails before refreshing anything
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no loaded provider has directories to watch")
	assert.Empty(t, alpha.Refreshes())
}
