package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package output renders command results for the terminal.

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected json or yaml)", s)
	}
}

// Write renders v to w. Raw JSON payloads are re-indented for JSON and
// converted to plain values for YAML.
func Write(w io.Writer, format string, v any) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}

	if raw, ok := v.(json.RawMessage); ok {
		return writeRaw(w, format, raw)
	}

	switch format {
	case FormatYAML:
		return writeYAML(w, v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

func writeRaw(w io.Writer, format string, raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("null")
	}
	if format == FormatYAML {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return writeYAML(w, v)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("indent payload: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
