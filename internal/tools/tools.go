// Package tools defines the fixed catalog of tools the chat model may call
// and executes parsed calls.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/llm"
)

// Tool names as the model sees them
const (
	SearchWebName      = "search_web"
	TimeInTimezoneName = "get_time_in_timezone"
)

// Call is a parsed tool invocation. The set of implementations is closed.
type Call interface {
	Name() string
	isCall()
}

// SearchWebCall looks a query up on the web
type SearchWebCall struct {
	Query string `json:"query"`
}

// Name implements Call
func (SearchWebCall) Name() string { return SearchWebName }
func (SearchWebCall) isCall()      {}

// TimeInTimezoneCall reports the current time in an IANA zone
type TimeInTimezoneCall struct {
	Timezone string `json:"timezone"`
}

// Name implements Call
func (TimeInTimezoneCall) Name() string { return TimeInTimezoneName }
func (TimeInTimezoneCall) isCall()      {}

var catalog = []llm.Tool{
	{
		Name:        SearchWebName,
		Description: "Search the web for additional information",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to look up",
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        TimeInTimezoneName,
		Description: "Get the current time in a specific timezone",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "The timezone to get the time for (e.g., 'America/New_York', 'Europe/London')",
				},
			},
			"required": []string{"timezone"},
		},
	},
}

// Catalog returns the tools offered to the model
func Catalog() []llm.Tool {
	out := make([]llm.Tool, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogJSON renders the catalog in the function-calling wire shape,
// indented for inclusion in a prompt.
func CatalogJSON() string {
	type function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}
	type entry struct {
		Type     string   `json:"type"`
		Function function `json:"function"`
	}

	entries := make([]entry, 0, len(catalog))
	for _, t := range catalog {
		entries = append(entries, entry{Type: "function", Function: function{Name: t.Name, Description: t.Description, Parameters: t.Parameters}})
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return string(out)
}

// Parse turns a model tool call into a Call. Names outside the catalog give
// an *errs.UnknownToolError; malformed arguments give errs.ErrToolExecution.
func Parse(name string, args json.RawMessage) (Call, error) {
	args = llm.NormaliseArguments(args)

	switch name {
	case SearchWebName:
		var c SearchWebCall
		if err := json.Unmarshal(args, &c); err != nil {
			return nil, fmt.Errorf("%w: %s arguments: %w", errs.ErrToolExecution, name, err)
		}
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("%w: %s requires a query", errs.ErrToolExecution, name)
		}
		return c, nil
	case TimeInTimezoneName:
		var c TimeInTimezoneCall
		if err := json.Unmarshal(args, &c); err != nil {
			return nil, fmt.Errorf("%w: %s arguments: %w", errs.ErrToolExecution, name, err)
		}
		if strings.TrimSpace(c.Timezone) == "" {
			return nil, fmt.Errorf("%w: %s requires a timezone", errs.ErrToolExecution, name)
		}
		return c, nil
	}
	return nil, &errs.UnknownToolError{Name: name}
}
