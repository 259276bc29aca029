package relay

import "context"

// Transport is the outbound slice of the external messaging API the relay
// core needs. Fetching is the poll loop's side, not the core's.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
	// SendTyping is best-effort; callers ignore its error.
	SendTyping(ctx context.Context, chatID int64) error
}

// TemplateStore renders the operator-editable message templates. A render
// never fails at traffic time: missing keys and placeholders degrade to
// stub or raw text.
type TemplateStore interface {
	Render(key string, vars map[string]string) string
	Set(key, text string) bool
	Reset(key string) bool
	ResetAll()
	Keys() []string
}
