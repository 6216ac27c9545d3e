package backend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError is a non-success response from the backend.
type APIError struct {
	Status int
	// Detail is the `detail` string of the error body, if any.
	Detail string
	// Fields holds the first message of each field-keyed error list,
	// e.g. {"username": ["A user with that username already exists."]}.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}

// Message returns the text to show the user: the detail when present,
// otherwise the field messages joined, otherwise fallback.
func (e *APIError) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, e.Fields[k])
		}
		return strings.Join(msgs, " ")
	}
	return fallback
}

// parseAPIError decodes an error body. Bodies that are not JSON objects yield
// an APIError with only the status set.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}
	for key, val := range raw {
		if key == "detail" {
			var detail string
			if err := json.Unmarshal(val, &detail); err == nil {
				apiErr.Detail = detail
			}
			continue
		}
		if msg := firstMessage(val); msg != "" {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string]string)
			}
			apiErr.Fields[key] = msg
		}
	}
	return apiErr
}

func firstMessage(val json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(val, &list); err == nil {
		if len(list) > 0 {
			return list[0]
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		return s
	}
	return ""
}
