package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseArguments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object passes through", `{"timezone":"Europe/London"}`, `{"timezone":"Europe/London"}`},
		{"string encoded object", `"{\"query\":\"go 1.24\"}"`, `{"query":"go 1.24"}`},
		{"empty", ``, `{}`},
		{"null", `null`, `{}`},
		{"empty string", `""`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(NormaliseArguments(json.RawMessage(tt.in))))
		})
	}
}

func TestOfferTools(t *testing.T) {
	tools := []Tool{{Name: "search_web"}}
	assert.True(t, OfferTools(ChatRequest{Tools: tools, ToolChoice: ToolChoiceAuto}))
	assert.False(t, OfferTools(ChatRequest{Tools: tools, ToolChoice: ToolChoiceNone}))
	assert.False(t, OfferTools(ChatRequest{ToolChoice: ToolChoiceAuto}))
}
