package ui

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indelve/indelve/pkg/provider"
)

func TestPlainRenderer_PrintsStageStartAndCompletion(t *testing.T) {
	// Given: a plain renderer over a buffer
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})
	require.NoError(t, r.Start(context.Background()))

	// When: a provider scans, then indexes in batches
	for _, ev := range []provider.Progress{
		{Provider: "files", Stage: provider.StageScan, Current: 500},
		{Provider: "files", Stage: provider.StageScan, Current: 1200, Total: 1200},
		{Provider: "files", Stage: provider.StageIndex, Total: 1200},
		{Provider: "files", Stage: provider.StageIndex, Current: 1000, Total: 1200},
		{Provider: "files", Stage: provider.StageIndex, Current: 1200, Total: 1200},
	} {
		r.Update(ev)
	}
	require.NoError(t, r.Stop())

	// Then: only stage starts and completions are printed
	assert.Equal(t,
		"[files] Scanning...\n"+
			"[files] Scanning: 1200/1200\n"+
			"[files] Indexing...\n"+
			"[files] Indexing: 1200/1200\n",
		buf.String())
}

func TestPlainRenderer_RepeatedCompletionPrintedOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	ev := provider.Progress{Provider: "apps", Stage: provider.StageIndex, Current: 3, Total: 3}
	r.Update(ev)
	r.Update(ev)

	assert.Equal(t, "[apps] Indexing...\n[apps] Indexing: 3/3\n", buf.String())
}

func TestPlainRenderer_NilOutputDiscards(t *testing.T) {
	r := NewPlainRenderer(Config{})
	assert.NotPanics(t, func() {
		r.Update(provider.Progress{Provider: "x", Stage: provider.StageScan})
	})
}
