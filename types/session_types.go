package types

import (
	"context"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionPayload struct {
	Model           string        `json:"model,omitempty"`
	History         []ChatMessage `json:"history,omitempty"`
	PromptMessageID int           `json:"prompt_message_id,omitempty"`
	BroadcastText   string        `json:"broadcast_text,omitempty"`
}

// Session is the conversational state of one user, keyed by the user id.
type Session struct {
	UserID    int64          `json:"user_id"`
	State     SessionState   `json:"state"`
	Payload   SessionPayload `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s *Session) Reset() {
	s.State = StateIdle
	s.Payload = SessionPayload{}
}

// EndInput leaves a prompt flow but keeps the dialog. With a model selected
// the user is back in the chat.
func (s *Session) EndInput() {
	s.Payload.PromptMessageID = 0
	s.Payload.BroadcastText = ""
	s.State = StateIdle
	if s.Payload.Model != "" {
		s.State = StateChatting
	}
}

type SessionStore interface {
	GetSession(ctx context.Context, userID int64) (*Session, error)
	SaveSession(ctx context.Context, session *Session) error
	ClearSession(ctx context.Context, userID int64) error
}
