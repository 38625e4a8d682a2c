package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, " yml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestWriteRawJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, json.RawMessage(`{"a":1,"b":[true]}`)))
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, json.RawMessage(nil)))
	assert.Equal(t, "null\n", buf.String())
}

func TestWriteRawYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, json.RawMessage(`{"name":"ops","tags":["a","b"]}`)))
	assert.Equal(t, "name: ops\ntags:\n  - a\n  - b\n", buf.String())
}

func TestWriteStructs(t *testing.T) {
	type row struct {
		ID string `json:"id" yaml:"id"`
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, []row{{ID: "ops"}}))
	assert.Equal(t, "- id: ops\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, row{ID: "ops"}))
	assert.JSONEq(t, `{"id":"ops"}`, buf.String())

	require.Error(t, Write(&buf, "toml", row{}))
}
