package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Optional response fields are read leniently: a value of an unexpected JSON
// type degrades to the zero value instead of failing the whole response.
// Only a body that is not a JSON object counts as a transport failure.

type fields map[string]json.RawMessage

func (f fields) str(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// number accepts a JSON number or a numeric string ("85.3", "85.3%").
func (f fields) number(key string) float64 {
	raw, ok := f[key]
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0
	}
	return v
}

// texts accepts an array (non-string items skipped) or a single string.
func (f fields) texts(key string) []string {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := f.str(key); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// list returns the objects of an array field; anything else yields nil.
func (f fields) list(key string) []fields {
	raw, ok := f[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]fields, 0, len(items))
	for _, item := range items {
		var obj fields
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func decodeFields(endpoint string, env Envelope) (fields, error) {
	var f fields
	if err := json.Unmarshal(env.Body, &f); err != nil {
		return nil, &Error{Op: "parse response", Endpoint: endpoint, Err: err}
	}
	return f, nil
}

func historyEntry(f fields) HistoryEntry {
	return HistoryEntry{
		Problem:    f.str("problem"),
		Category:   f.str("category"),
		Confidence: f.number("confidence"),
		Solutions:  f.texts("solutions"),
		CreatedAt:  f.str("created_at"),
	}
}
