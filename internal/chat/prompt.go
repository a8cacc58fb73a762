package chat

import (
	"fmt"
	"strings"

	"github.com/docchat/docchat/internal/tools"
)

const (
	// FallbackResponse is used when the model returns neither content nor a tool call
	FallbackResponse = "I'm sorry, I couldn't generate a response at this time."
	// ToolErrorResponse is used when the requested tool cannot be dispatched
	ToolErrorResponse = "I encountered an error while processing your request. Please try again."

	titleLimit = 50
)

const systemPromptTemplate = `You are a helpful AI assistant embedded in a web application. You have access to the following tools:

%s

KNOWLEDGE AND TOOL USAGE INSTRUCTIONS:

1. For time-related questions (e.g., "What time is it?", "What's today's date?"), ALWAYS use the "get_time_in_timezone" tool with the user's timezone to get the CURRENT date and time.
   DO NOT use your training data cutoff date.

2. For other questions where you already know the answer with high confidence, respond directly in natural language.

3. If you are unsure or the answer may not be in your training data, you MUST use the "search_web" tool.

   DO NOT speculate, hedge, or mention the limits of your training data.

   DO NOT say things like:
   - "I am not sure"
   - "I am unable to provide..."
   - "As of my last update"
   - "Check the official website"
   - "I recommend searching online"

4. Use "search_web" as the default fallback tool for any question where your answer is incomplete, uncertain, or possibly outdated.

EXAMPLES:
- "What time is it?" -> use "get_time_in_timezone"
- "What is the capital of Japan?" -> direct answer
- "What are the 2024 color options for the Jeep Wrangler?" -> use "search_web"

After using a tool, I will return the result so you can respond to the user.`

// SystemPrompt lists the tool catalog and how to use it
func SystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, tools.CatalogJSON())
}

// ToolNote is the assistant note carrying a tool result into the final call
func ToolNote(name, result string) string {
	if strings.TrimSpace(result) == "" {
		return fmt.Sprintf("Tool %s was called but returned no result.", name)
	}
	return fmt.Sprintf("Tool %s was called with result: %s", name, result)
}

// Title derives a conversation title from its first user message
func Title(message string) string {
	runes := []rune(message)
	if len(runes) <= titleLimit {
		return message
	}
	return string(runes[:titleLimit]) + "..."
}

// Words splits a response on whitespace for client playback
func Words(text string) []string {
	words := strings.Fields(text)
	if words == nil {
		return []string{}
	}
	return words
}
