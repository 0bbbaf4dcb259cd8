package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indelve/indelve/pkg/provider"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestNew_BufferIsNotTTY(t *testing.T) {
	var buf bytes.Buffer

	w := New(&buf)

	assert.False(t, w.color)
	assert.False(t, IsTTY(&buf))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestWriter_StatusMessages(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithColor(&buf, false)

	w.Successf("indexed %d paths", 3)
	w.Warning("provider apps skipped")
	w.Errorf("failed: %s", "boom")
	w.Status("", "indented")

	assert.Equal(t,
		"✓ indexed 3 paths\n! provider apps skipped\n✗ failed: boom\n   indented\n",
		buf.String())
}

func TestWriter_Items(t *testing.T) {
	// Given: two items from different providers
	var buf bytes.Buffer
	w := NewWithColor(&buf, false)
	items := []provider.Item{
		{"relevance": 0.9, "provider": "apps", "title": "Firefox", "comment": "Browse the web"},
		{"relevance": 1, "provider": "calc", "title": "2+2 = 4", "value": 4.0},
	}

	// When: rendering as text
	w.Items(items)

	// Then: numbered titles with provider, score and first detail
	assert.Equal(t,
		"1. Firefox [apps] 0.900\n   Browse the web\n2. 2+2 = 4 [calc] 1.000\n",
		buf.String())
}

func TestWriter_Items_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewWithColor(&buf, false).Items(nil)

	assert.Equal(t, "   No results.\n", buf.String())
}

func TestWriter_ItemsJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithColor(&buf, false)

	require.NoError(t, w.ItemsJSON([]provider.Item{{"relevance": 0.5, "title": "a"}}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, 0.5, decoded[0]["relevance"])

	buf.Reset()
	require.NoError(t, w.ItemsJSON(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriter_ProviderDescriptions(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithColor(&buf, false)
	descs := map[string]provider.Description{
		"files": {Short: "File names", Long: "Indexes file names."},
		"calc":  {Short: "Calculator", Long: "Evaluates arithmetic."},
	}

	w.ProviderDescriptions([]string{"files", "calc", "missing"}, descs, true)

	assert.Equal(t,
		"files  File names\n       Indexes file names.\ncalc   Calculator\n       Evaluates arithmetic.\n",
		buf.String())
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]provider.Description{"b": {}, "a": {}})
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestWriter_ColorStylesRender(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithColor(&buf, true)

	w.ProviderIDs([]string{"files"})

	assert.Equal(t, "files\n", buf.String())
	assert.True(t, w.color)
}
