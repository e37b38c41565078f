// Package solrerr decodes the JSON error envelope Solr's update and query
// handlers return on failure, for richer worker log lines than the raw
// response body. Grounded on the Solr client's ResponseError/ErrorDetail
// types (error.go), adapted from a response-unmarshaling field into a
// standalone decoder the loader pool calls on demand.
package solrerr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Detail carries one error detail entry. Solr is inconsistent about
// whether a detail is a bare string or an object describing a failed batch
// command, so both shapes decode into the same type.
type Detail struct {
	Messages    []string
	Command     string
	CommandItem map[string]interface{}
}

func (d Detail) String() string {
	if d.Command == "" {
		return strings.Join(d.Messages, "; ")
	}
	return fmt.Sprintf("%s: %v", d.Command, d.Messages)
}

// Error is a decoded Solr error envelope: {"error":{"code":...,"msg":...}}.
type Error struct {
	Code    float64
	Message string
	Meta    []string
	Details []Detail
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	var parts []string
	for _, d := range e.Details {
		parts = append(parts, d.String())
	}
	return fmt.Sprintf("%s: {%s}", e.Message, strings.Join(parts, ", "))
}

// Decode attempts to parse body as a Solr error envelope. It returns false
// when body is not JSON or carries no "error" object, so callers can fall
// back to logging the raw body.
func Decode(body []byte) (*Error, bool) {
	var env struct {
		ErrorObj json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.ErrorObj) == 0 {
		return nil, false
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(env.ErrorObj, &raw); err != nil {
		return nil, false
	}

	e := &Error{}
	if code, ok := raw["code"].(float64); ok {
		e.Code = code
	}
	if msg, ok := raw["msg"].(string); ok {
		e.Message = msg
	}
	if metas, ok := raw["metadata"].([]interface{}); ok {
		for _, m := range metas {
			if s, ok := m.(string); ok {
				e.Meta = append(e.Meta, s)
			}
		}
	}
	if details, ok := raw["details"].([]interface{}); ok {
		for _, item := range details {
			switch v := item.(type) {
			case string:
				e.Details = append(e.Details, Detail{Messages: []string{v}})
			case map[string]interface{}:
				var d Detail
				for key, val := range v {
					if key == "errorMessages" {
						if msgs, ok := val.([]interface{}); ok {
							for _, m := range msgs {
								if s, ok := m.(string); ok {
									d.Messages = append(d.Messages, s)
								}
							}
						}
						continue
					}
					d.Command = key
					if obj, ok := val.(map[string]interface{}); ok {
						d.CommandItem = obj
					}
				}
				e.Details = append(e.Details, d)
			}
		}
	}

	if e.Message == "" && len(e.Details) == 0 {
		return nil, false
	}
	return e, true
}
