package types

import "strings"

type SessionState string

const (
	StateIdle              SessionState = ""
	StateChatting          SessionState = "chatting"
	StateAwaitImagePrompt  SessionState = "await_image_prompt"
	StateAwaitSystemPrompt SessionState = "await_system_prompt"
	StateAwaitTemperature  SessionState = "await_temperature"

	StateAdminGrant            SessionState = "admin_await_grant"
	StateAdminRevoke           SessionState = "admin_await_revoke"
	StateAdminBlock            SessionState = "admin_await_block"
	StateAdminUnblock          SessionState = "admin_await_unblock"
	StateAdminSearch           SessionState = "admin_await_search"
	StateAdminBroadcastText    SessionState = "admin_await_broadcast_text"
	StateAdminBroadcastConfirm SessionState = "admin_await_broadcast_confirm"
)

func (s SessionState) IsAdmin() bool {
	return strings.HasPrefix(string(s), "admin_")
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
