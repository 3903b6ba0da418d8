// Package providers implements the chat-completion wire codecs.
// Each codec registers itself with the llm package in init().
package providers

import (
	"strings"

	"github.com/c360studio/semcoach/llm"
)

// systemSeparator joins multiple system turns.
const systemSeparator = "\n\n"

// splitSystem separates system turns from the conversation. Multiple system
// turns are joined with a blank line in their original order.
func splitSystem(messages []llm.Message) (string, []llm.Message) {
	var system []string
	rest := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, systemSeparator), rest
}
