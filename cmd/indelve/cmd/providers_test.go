package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indelve/indelve/pkg/provider"
	"github.com/indelve/indelve/pkg/provider/providertest"
)

func TestProviders_ListsLoadedInOrder(t *testing.T) {
	isolate(t)
	_, _, reg := twoStubs()

	res := run(t, reg, "providers")

	require.NoError(t, res.err)
	assert.Equal(t, "alpha\nbeta\n", res.stdout)
}

func TestProviders_ProvidersFlagOrder(t *testing.T) {
	isolate(t)
	_, _, reg := twoStubs()

	res := run(t, reg, "--providers", "beta,alpha", "providers")

	require.NoError(t, res.err)
	assert.Equal(t, "beta\nalpha\n", res.stdout)
}

func TestProviders_Descriptions(t *testing.T) {
	isolate(t)
	_, _, reg := twoStubs()

	short := run(t, reg, "providers", "-d")
	long := run(t, reg, "providers", "--long")

	require.NoError(t, short.err)
	assert.Contains(t, short.stdout, "alpha")
	assert.NotContains(t, short.stdout, "stub provider alpha")

	require.NoError(t, long.err)
	assert.Contains(t, long.stdout, "stub provider alpha")
	assert.Contains(t, long.stdout, "stub provider beta")
}

func TestProviders_AllDoesNotLoad(t *testing.T) {
	// Given: a provider whose factory would fail hard
	isolate(t)
	built := false
	reg := registryOf(
		providertest.Definition("alpha", providertest.New("alpha", 0.5)),
		provider.Definition{
			ID:          "broken",
			Description: provider.Description{Short: "Broken", Long: "fails when built"},
			New: func(context.Context) (provider.Provider, error) {
				built = true
				return nil, errors.New("boom")
			},
		},
	)

	// When: listing declared providers as JSON
	res := run(t, reg, "providers", "--all", "-d", "--format", "json")

	// Then: both are listed and no factory ran
	require.NoError(t, res.err)
	assert.False(t, built)

	var list []providerJSON
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	assert.Equal(t, []providerJSON{
		{ID: "alpha", Short: "alpha"},
		{ID: "broken", Short: "Broken"},
	}, list)
}

func TestProviders_Describe(t *testing.T) {
	isolate(t)
	_, _, reg := twoStubs()

	res := run(t, reg, "providers", "describe", "beta")

	require.NoError(t, res.err)
	assert.Equal(t, "beta: beta\n\nstub provider beta\n", res.stdout)
}

func TestProviders_DescribeUnknown(t *testing.T) {
	isolate(t)
	_, _, reg := twoStubs()

	res := run(t, reg, "providers", "describe", "nope")

	assert.Error(t, res.err)
}

func TestProviders_DescribeDoesNotLoadProviders(t *testing.T) {
	// Given: a declared provider whose factory fails, and one that would load
	isolate(t)
	loaded := 0
	reg := registryOf(
		providertest.Failing("broken", provider.Unavailable("no data here")),
		provider.Definition{
			ID:          "counted",
			Description: provider.Description{Short: "counted"},
			New: func(context.Context) (provider.Provider, error) {
				loaded++
				return providertest.New("counted"), nil
			},
		},
	)

	// When: describing the unavailable provider
	res := run(t, reg, "providers", "describe", "broken")

	// Then: its declared description is shown without running any factory
	require.NoError(t, res.err)
	assert.Equal(t, "broken: broken\n\nalways fails to load\n", res.stdout)
	assert.Zero(t, loaded)
}
