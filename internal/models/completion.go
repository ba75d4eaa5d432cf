package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrNullBody is returned when the request body is the JSON literal null,
// which carries no fields to read messages and model from.
var ErrNullBody = errors.New("cannot read properties of null request body")

// CompletionRequest is the payload forwarded to Perplexity. Both fields are
// kept as raw JSON so the upstream receives exactly what the caller sent.
type CompletionRequest struct {
	Messages json.RawMessage `json:"messages"`
	Model    json.RawMessage `json:"model"`
}

// ParseCompletionRequest decodes an inbound body. Only malformed JSON and a
// null body are errors; any other JSON value yields a request whose missing
// fields are caught by HasMessages and HasModel.
func ParseCompletionRequest(body []byte) (*CompletionRequest, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return nil, ErrNullBody
	}

	req := &CompletionRequest{}
	if raw[0] != '{' {
		return req, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	req.Messages = fields["messages"]
	req.Model = fields["model"]

	return req, nil
}

// HasMessages reports whether messages is a non-empty JSON array.
func (r *CompletionRequest) HasMessages() bool {
	msgs := bytes.TrimSpace(r.Messages)
	if len(msgs) == 0 || msgs[0] != '[' {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msgs, &items); err != nil {
		return false
	}
	return len(items) > 0
}

// HasModel reports whether model is present and truthy: null, false, 0 and
// the empty string all count as missing.
func (r *CompletionRequest) HasModel() bool {
	model := bytes.TrimSpace(r.Model)
	if len(model) == 0 || isNull(model) {
		return false
	}

	switch model[0] {
	case '"':
		var s string
		return json.Unmarshal(model, &s) == nil && s != ""
	case 'f':
		return false
	case 't', '{', '[':
		return true
	}

	n, err := strconv.ParseFloat(string(model), 64)
	return err == nil && n != 0
}

func isNull(raw []byte) bool {
	return bytes.Equal(raw, []byte("null"))
}
