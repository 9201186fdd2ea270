package types

import (
	"context"
	"time"
)

type Broadcast struct {
	ID          int64
	Text        string
	InitiatorID int64
	CreatedAt   time.Time
}

type SentBroadcastMessage struct {
	BroadcastID int64
	UserID      int64
	MessageID   int
}

type BroadcastStore interface {
	CreateBroadcast(ctx context.Context, text string, initiatorID int64) (int64, error)
	AddSentMessage(ctx context.Context, broadcastID, userID int64, messageID int) error
	SentMessages(ctx context.Context, broadcastID int64) ([]SentBroadcastMessage, error)
	DeleteBroadcast(ctx context.Context, broadcastID int64) (bool, error)
}
