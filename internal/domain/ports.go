package domain

import "context"

// ReplyGenerator produces the text of a synthetic assistant reply.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userMessage string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives the generator minimal context about the conversation.
type ConversationContext struct {
	SessionID SessionID
	Partner   Partner
	History   []Message
}

// SettingsStore persists the API key record.
// WriteSettings must be durable when it returns; ReadSettings returns an
// empty record when nothing was written yet.
type SettingsStore interface {
	ReadSettings(ctx context.Context) (*APIKeys, error)
	WriteSettings(ctx context.Context, keys *APIKeys) error
}
