package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// PseudonymPrefix marks every derived pseudonym so operator input can
	// be routed without a registry lookup first.
	PseudonymPrefix = "anon_"

	pseudonymHexLen   = 8
	displayNameMaxLen = 50
	defaultPseudoSalt = "pineveil_relay_salt_v1"

	reasonNameEmpty   = "empty"
	reasonNameTooLong = "longer than 50 characters"
)

// Identity binds a real transport user id to its stable pseudonym and the
// mutable metadata the operator and the user control.
type Identity struct {
	RealID         int64     `json:"real_id"`
	Pseudonym      string    `json:"pseudonym"`
	Username       string    `json:"username,omitempty"`
	DisplayName    string    `json:"display_name,omitempty"`
	Blocked        bool      `json:"blocked"`
	RegisteredAt   time.Time `json:"registered_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Registry owns the real-id <-> pseudonym mapping. Derivation is a pure
// function of (real id, salt); the reverse direction is only available
// through the stored index, never by inverting the digest.
type Registry struct {
	mu   sync.Mutex
	salt string
	now  func() time.Time

	byRealID    map[int64]*Identity
	byPseudonym map[string]*Identity

	// Blocks declared by the operator before the pseudonym's owner ever
	// sent anything. Honored at registration time.
	pendingBlocks map[string]bool
}

func NewRegistry(salt string, now func() time.Time) *Registry {
	if strings.TrimSpace(salt) == "" {
		salt = defaultPseudoSalt
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		salt:          salt,
		now:           now,
		byRealID:      make(map[int64]*Identity),
		byPseudonym:   make(map[string]*Identity),
		pendingBlocks: make(map[string]bool),
	}
}

func derivePseudonym(realID int64, salt string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(realID, 10) + "_" + salt))
	return PseudonymPrefix + hex.EncodeToString(sum[:])[:pseudonymHexLen]
}

// Register returns the pseudonym for realID, creating the identity on
// first contact. Repeated calls with the same realID always return the
// same pseudonym and never reset existing metadata.
func (r *Registry) Register(realID int64, username string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byRealID[realID]; ok {
		if username = strings.TrimSpace(username); username != "" {
			id.Username = username
		}
		return id.Pseudonym
	}

	now := r.now().UTC()
	id := &Identity{
		RealID:         realID,
		Pseudonym:      derivePseudonym(realID, r.salt),
		Username:       strings.TrimSpace(username),
		RegisteredAt:   now,
		LastActivityAt: now,
	}
	if r.pendingBlocks[id.Pseudonym] {
		id.Blocked = true
		delete(r.pendingBlocks, id.Pseudonym)
	}
	r.byRealID[realID] = id
	r.byPseudonym[id.Pseudonym] = id
	return id.Pseudonym
}

// SetDisplayName validates and stores the trimmed name. Names are unique
// across identities; a collision fails with ErrNameTaken rather than
// leaving reply routing ambiguous.
func (r *Registry) SetDisplayName(realID int64, name string) error {
	if utf8.RuneCountInString(name) > displayNameMaxLen {
		return &ValidationError{Field: "display_name", Reason: reasonNameTooLong}
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Field: "display_name", Reason: reasonNameEmpty}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byRealID[realID]
	if !ok {
		return ErrNotFound
	}
	for _, other := range r.byRealID {
		if other.RealID != realID && other.DisplayName == trimmed {
			return ErrNameTaken
		}
	}
	id.DisplayName = trimmed
	return nil
}

// ResolveByPseudonym returns the real id behind a pseudonym.
func (r *Registry) ResolveByPseudonym(pseudonym string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPseudonym[pseudonym]
	if !ok {
		return 0, ErrNotFound
	}
	return id.RealID, nil
}

// ResolveByRealID returns the pseudonym for a real id without registering.
func (r *Registry) ResolveByRealID(realID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRealID[realID]
	if !ok {
		return "", ErrNotFound
	}
	return id.Pseudonym, nil
}

// ResolveByDisplayName matches a display name exactly. More than one match
// yields ErrAmbiguousName so callers never silently pick one.
func (r *Registry) ResolveByDisplayName(name string) (string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *Identity
	for _, id := range r.byRealID {
		if id.DisplayName == "" || id.DisplayName != name {
			continue
		}
		if found != nil {
			return "", 0, ErrAmbiguousName
		}
		found = id
	}
	if found == nil {
		return "", 0, ErrNotFound
	}
	return found.Pseudonym, found.RealID, nil
}

// Get returns a copy of the identity record behind a pseudonym.
func (r *Registry) Get(pseudonym string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPseudonym[pseudonym]
	if !ok {
		return Identity{}, false
	}
	return *id, true
}

// DisplayNameFor returns the chosen display name, falling back to the
// pseudonym itself when none is set.
func (r *Registry) DisplayNameFor(pseudonym string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPseudonym[pseudonym]; ok && id.DisplayName != "" {
		return id.DisplayName
	}
	return pseudonym
}

// Block marks a pseudonym as blocked. Blocking a pseudonym that has not
// registered yet is accepted as a forward declaration.
func (r *Registry) Block(pseudonym string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPseudonym[pseudonym]; ok {
		id.Blocked = true
		return
	}
	r.pendingBlocks[pseudonym] = true
}

// Unblock clears the blocked flag. Unblocking a pseudonym the registry has
// never seen (neither registered nor forward-blocked) is ErrNotFound.
func (r *Registry) Unblock(pseudonym string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPseudonym[pseudonym]; ok {
		id.Blocked = false
		return nil
	}
	if r.pendingBlocks[pseudonym] {
		delete(r.pendingBlocks, pseudonym)
		return nil
	}
	return ErrNotFound
}

func (r *Registry) IsBlocked(pseudonym string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPseudonym[pseudonym]; ok {
		return id.Blocked
	}
	return r.pendingBlocks[pseudonym]
}

// Touch updates the identity's last-activity timestamp.
func (r *Registry) Touch(realID int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byRealID[realID]; ok {
		id.LastActivityAt = at.UTC()
	}
}

// Counts reports registered and blocked identity totals.
func (r *Registry) Counts() (registered, blocked int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	registered = len(r.byRealID)
	for _, id := range r.byRealID {
		if id.Blocked {
			blocked++
		}
	}
	return registered, blocked
}

// Snapshot returns copies of every identity, for the dashboard.
func (r *Registry) Snapshot() []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Identity, 0, len(r.byRealID))
	for _, id := range r.byRealID {
		out = append(out, *id)
	}
	return out
}
