package telegram

import (
	"context"
	"time"

	"github.com/hyejuteao/pineveilbot/relay"
)

// FetchEvents adapts getUpdates to the relay's event stream, so Client
// satisfies the poll loop's source contract. Updates the relay cannot act
// on (bots, channel posts, group chats) still come back as sender-less
// events: the cursor has to advance past them or getUpdates would return
// them forever.
func (c *Client) FetchEvents(ctx context.Context, cursor int64, timeout time.Duration) ([]relay.Event, error) {
	updates, err := c.GetUpdates(ctx, cursor, timeout)
	if err != nil {
		return nil, err
	}
	events := make([]relay.Event, 0, len(updates))
	for _, u := range updates {
		events = append(events, eventFromUpdate(u))
	}
	return events, nil
}

// IsWaitTimeout satisfies the poll source contract.
func (c *Client) IsWaitTimeout(err error) bool { return IsPollTimeout(err) }

func eventFromUpdate(u Update) relay.Event {
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return relay.Event{SequenceID: u.UpdateID}
	}
	if msg.Chat.Type != "" && msg.Chat.Type != "private" {
		return relay.Event{SequenceID: u.UpdateID}
	}

	ev := relay.Event{
		SequenceID:     u.UpdateID,
		SenderID:       msg.From.ID,
		SenderUsername: msg.From.Username,
		Text:           msg.Text,
	}
	if msg.Date > 0 {
		ev.SentAt = time.Unix(msg.Date, 0).UTC()
	}
	if len(msg.Photo) > 0 {
		ev.Photo = &relay.PhotoRef{
			FileID:  largestPhoto(msg.Photo).FileID,
			Caption: msg.Caption,
		}
	}
	return ev
}

func largestPhoto(sizes []PhotoSize) PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.FileSize > best.FileSize {
			best = s
		}
	}
	return best
}
