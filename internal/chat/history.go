package chat

import "github.com/BatmanBruc/arima-bot/types"

// BuildHistory returns the messages for the next call: the current system
// prompt, the tail of the previous turns and the new user text, keeping at
// most maxLen messages after the system one.
func BuildHistory(history []types.ChatMessage, systemPrompt, text string, maxLen int) []types.ChatMessage {
	out := make([]types.ChatMessage, 0, len(history)+2)
	out = append(out, types.ChatMessage{Role: types.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		if m.Role == types.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	out = append(out, types.ChatMessage{Role: types.RoleUser, Content: text})
	return TrimHistory(out, maxLen)
}

// TrimHistory keeps a leading system message and the last maxLen others.
func TrimHistory(msgs []types.ChatMessage, maxLen int) []types.ChatMessage {
	if maxLen <= 0 {
		maxLen = 1
	}
	head := 0
	if len(msgs) > 0 && msgs[0].Role == types.RoleSystem {
		head = 1
	}
	if len(msgs)-head <= maxLen {
		return msgs
	}
	out := make([]types.ChatMessage, 0, head+maxLen)
	out = append(out, msgs[:head]...)
	return append(out, msgs[len(msgs)-maxLen:]...)
}
