package relay

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Direction string

const (
	DirectionInbound  Direction = "incoming"
	DirectionOutbound Direction = "outgoing"
)

const (
	previewMaxRunes = 100
	previewEllipsis = "..."

	recentActivityWindow = 24 * time.Hour
)

// Message is one relayed event. Immutable once appended.
type Message struct {
	ID          string    `json:"id"`
	Pseudonym   string    `json:"pseudonym"`
	RealID      int64     `json:"-"`
	Direction   Direction `json:"direction"`
	Body        string    `json:"body"`
	PhotoFileID string    `json:"photo_file_id,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Summary is the derived per-conversation projection, recomputed on every
// append so readers never observe a log/summary mismatch.
type Summary struct {
	Pseudonym    string    `json:"pseudonym"`
	Preview      string    `json:"preview"`
	LastActivity time.Time `json:"last_activity"`
	Direction    Direction `json:"direction"`
	MessageCount int       `json:"message_count"`
	DisplayName  string    `json:"display_name"`
	Username     string    `json:"username,omitempty"`
}

// Aggregate is the dashboard's headline stats block.
type Aggregate struct {
	TotalConversations   int `json:"total_conversations"`
	TotalMessages        int `json:"total_messages"`
	RecentActivityCount  int `json:"recent_activity_count"`
	RegisteredIdentities int `json:"registered_identities"`
	BlockedIdentities    int `json:"blocked_identities"`
}

// Store keeps the append-only per-pseudonym message logs plus their
// summaries under a single lock.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	registry  *Registry
	logs      map[string][]Message
	summaries map[string]Summary
}

func NewStore(registry *Registry, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:       now,
		registry:  registry,
		logs:      make(map[string][]Message),
		summaries: make(map[string]Summary),
	}
}

// Append adds msg to its pseudonym's log, recomputes the summary and
// touches the owning identity, all before returning. Missing ID and
// SentAt fields are filled in.
func (s *Store) Append(msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = s.now().UTC()
	}

	s.logs[msg.Pseudonym] = append(s.logs[msg.Pseudonym], msg)

	var displayName, username string
	if s.registry != nil {
		displayName = s.registry.DisplayNameFor(msg.Pseudonym)
		if id, ok := s.registry.Get(msg.Pseudonym); ok {
			username = id.Username
		}
		s.registry.Touch(msg.RealID, msg.SentAt)
	}
	s.summaries[msg.Pseudonym] = Summary{
		Pseudonym:    msg.Pseudonym,
		Preview:      previewOf(msg.Body),
		LastActivity: msg.SentAt,
		Direction:    msg.Direction,
		MessageCount: len(s.logs[msg.Pseudonym]),
		DisplayName:  displayName,
		Username:     username,
	}
	return msg
}

// Log returns the pseudonym's messages in insertion order. Unknown
// pseudonyms yield an empty slice, not an error.
func (s *Store) Log(pseudonym string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[pseudonym]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// Summaries returns a snapshot of every conversation summary. Sorting for
// display is the caller's concern.
func (s *Store) Summaries() map[string]Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Summary, len(s.summaries))
	for k, v := range s.summaries {
		out[k] = v
	}
	return out
}

// Aggregate computes headline stats at call time. The recent-activity
// window is trailing 24h measured against the store's clock.
func (s *Store) Aggregate() Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := Aggregate{
		TotalConversations: len(s.summaries),
	}
	for _, log := range s.logs {
		agg.TotalMessages += len(log)
	}
	cutoff := s.now().UTC().Add(-recentActivityWindow)
	for _, sum := range s.summaries {
		if sum.LastActivity.After(cutoff) {
			agg.RecentActivityCount++
		}
	}
	if s.registry != nil {
		agg.RegisteredIdentities, agg.BlockedIdentities = s.registry.Counts()
	}
	return agg
}

func previewOf(body string) string {
	if utf8.RuneCountInString(body) <= previewMaxRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewMaxRunes]) + previewEllipsis
}
