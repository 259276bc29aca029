package relay

import "time"

// PhotoRef points at transport-hosted media; the relay never downloads the
// bytes, it forwards the reference.
type PhotoRef struct {
	FileID  string
	Caption string
}

// Event is one inbound unit from the transport. SequenceID is the
// transport-assigned, monotonically increasing cursor value.
type Event struct {
	SequenceID     int64
	SenderID       int64
	SenderUsername string
	Text           string
	Photo          *PhotoRef
	SentAt         time.Time
}

// HasPhoto reports whether the event carries media instead of plain text.
func (e Event) HasPhoto() bool { return e.Photo != nil && e.Photo.FileID != "" }
