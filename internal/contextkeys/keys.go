package contextkeys

import (
	"context"

	"github.com/BatmanBruc/arima-bot/internal/access"
)

type messageTypeKey struct{}
type accessKey struct{}
type callbackDataKey struct{}
type newUserKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "clickButton"
	MessageTypeGroupText   MessageType = "groupText"
	MessageTypeGroupCmd    MessageType = "groupCommand"
	MessageTypeMedia       MessageType = "media"
	MessageTypeUnknown     MessageType = "unknown"
)

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v := ctx.Value(messageTypeKey{})
	if v == nil {
		return MessageTypeUnknown, false
	}
	return v.(MessageType), true
}

func IsGroupMessage(ctx context.Context) bool {
	msgType, ok := GetMessageType(ctx)
	return ok && (msgType == MessageTypeGroupText || msgType == MessageTypeGroupCmd)
}

// WithAccess stores the caller's rights as evaluated for this update.
func WithAccess(ctx context.Context, a access.Access) context.Context {
	return context.WithValue(ctx, accessKey{}, a)
}

func GetAccess(ctx context.Context) (access.Access, bool) {
	v := ctx.Value(accessKey{})
	if v == nil {
		return access.Access{}, false
	}
	return v.(access.Access), true
}

func IsAdmin(ctx context.Context) bool {
	a, ok := GetAccess(ctx)
	return ok && a.Admin
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v := ctx.Value(callbackDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

// WithNewUser marks an update as the first one seen from its sender.
func WithNewUser(ctx context.Context) context.Context {
	return context.WithValue(ctx, newUserKey{}, true)
}

func IsNewUser(ctx context.Context) bool {
	v, _ := ctx.Value(newUserKey{}).(bool)
	return v
}
