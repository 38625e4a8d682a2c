package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-ops-client/pkg/httpclient"
)

var emptyObject = json.RawMessage(`{}`)

// normalize turns a received response into nil (payload decoded into out) or an *Error.
func normalize(resp httpclient.Response, strict bool, out any) *Error {
	raw := resp.Body()
	status := resp.StatusCode()

	payload, parseErr := parseBody(raw)

	if status < 200 || status > 299 {
		return &Error{
			Status:  status,
			Message: failureMessage(payload, resp.StatusText()),
			Kind:    KindHTTP,
			Detail:  failureDetail(raw, parseErr),
		}
	}

	if parseErr != nil {
		if strict && (out != nil || len(bytes.TrimSpace(raw)) > 0) {
			return invalidResponse(status, parseErr)
		}
		// Lenient mode: the substituted {} is decoded best effort, so a T that
		// cannot hold an object is simply left at its zero value.
		if out != nil {
			_ = json.Unmarshal(emptyObject, out)
		}
		return nil
	}

	if out == nil {
		return nil
	}
	if err := decode(payload, out, strict); err != nil {
		return invalidResponse(status, err)
	}
	if strict {
		if v, ok := out.(Validator); ok {
			if err := v.Validate(); err != nil {
				return invalidResponse(status, err)
			}
		}
	}
	return nil
}

// parseBody returns the body as JSON, or {} with the parse error when it is not valid JSON.
func parseBody(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return emptyObject, errors.New("empty body")
	}
	if !json.Valid(trimmed) {
		return emptyObject, errors.New("body is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}

func decode(payload json.RawMessage, out any, strict bool) error {
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], payload...)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// failureMessage picks the "error" field of the body, then the status text,
// then MessageRequestFailed.
func failureMessage(payload json.RawMessage, statusText string) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if msg := errorField(envelope["error"]); msg != "" {
			return msg
		}
	}
	if s := strings.TrimSpace(statusText); s != "" {
		return s
	}
	return MessageRequestFailed
}

// errorField renders the "error" value: strings as-is, other non-empty values as compact JSON.
func errorField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	switch string(raw) {
	case "null", "false", "0", `""`:
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
