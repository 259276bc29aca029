package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hyejuteao/pineveilbot/internal/metrics"
)

const notifTimeFormat = "02/01/2006 15:04:05"

// MediaMarker is the body stand-in stored and forwarded for non-text
// messages.
const MediaMarker = "[MEDIA]"

type MachineOptions struct {
	Registry   *Registry
	Store      *Store
	Transport  Transport
	Templates  TemplateStore
	Router     *Router
	OperatorID int64
	Logger     *slog.Logger
}

// Machine decides, per inbound event, which side-effecting action to take.
// It tracks the only transient per-user mode the relay has: whether the
// sender still owes a display name.
type Machine struct {
	mu           sync.Mutex
	awaitingName map[int64]bool

	registry   *Registry
	store      *Store
	transport  Transport
	templates  TemplateStore
	router     *Router
	operatorID int64
	logger     *slog.Logger
}

func NewMachine(opts MachineOptions) (*Machine, error) {
	if opts.Registry == nil || opts.Store == nil {
		return nil, fmt.Errorf("registry and store are required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Templates == nil {
		return nil, fmt.Errorf("template store is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if opts.OperatorID == 0 {
		return nil, fmt.Errorf("operator chat id is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		awaitingName: make(map[int64]bool),
		registry:     opts.Registry,
		store:        opts.Store,
		transport:    opts.Transport,
		templates:    opts.Templates,
		router:       opts.Router,
		operatorID:   opts.OperatorID,
		logger:       logger,
	}, nil
}

// HandleEvent processes one inbound event. Failures inside a flow degrade
// to a logged event plus a user-visible notice; they never fail the poll
// cycle, so a nil return is the norm.
func (m *Machine) HandleEvent(ctx context.Context, ev Event) error {
	if ev.SenderID == 0 {
		return nil
	}
	if ev.SenderID == m.operatorID {
		m.handleOperator(ctx, ev)
		return nil
	}
	m.handleUser(ctx, ev)
	return nil
}

func (m *Machine) handleOperator(ctx context.Context, ev Event) {
	if cmd, ok := ParseCommand(ev.Text, true); ok {
		m.handleOperatorCommand(ctx, cmd)
		return
	}
	if ev.HasPhoto() {
		// Operator media replies go through the dashboard, not the chat.
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}
	m.router.HandleOperatorText(ctx, m.operatorID, text)
}

func (m *Machine) handleOperatorCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case StartCommand, HelpCommand:
		m.send(ctx, m.operatorID, "welcome_admin", nil)
	case ChangeNameCommand:
		// The operator has no pseudonym to rename.
	case BlockCommand:
		m.registry.Block(c.Pseudonym)
		m.logger.Info("relay_user_blocked", "pseudonym", c.Pseudonym)
		m.send(ctx, m.operatorID, "user_blocked", map[string]string{"pseudonym": c.Pseudonym})
	case UnblockCommand:
		if err := m.registry.Unblock(c.Pseudonym); err != nil {
			m.send(ctx, m.operatorID, "user_not_found", map[string]string{"identifier": c.Pseudonym})
			return
		}
		m.logger.Info("relay_user_unblocked", "pseudonym", c.Pseudonym)
		m.send(ctx, m.operatorID, "user_unblocked", map[string]string{"pseudonym": c.Pseudonym})
	case ResetTemplateCommand:
		if m.templates.Reset(c.Key) {
			m.sendRaw(ctx, m.operatorID, fmt.Sprintf("Template %q reset to default.", c.Key))
		} else {
			m.sendRaw(ctx, m.operatorID, fmt.Sprintf("Template %q not found.", c.Key))
		}
	case ResetAllTemplatesCommand:
		m.templates.ResetAll()
		m.sendRaw(ctx, m.operatorID, "All templates reset to defaults.")
	case ListTemplatesCommand:
		var b strings.Builder
		b.WriteString("Editable templates:\n")
		for _, key := range m.templates.Keys() {
			b.WriteString("- " + key + "\n")
		}
		b.WriteString("Reset one with /resetmsg <key>, all with /resetall.")
		m.sendRaw(ctx, m.operatorID, b.String())
	}
}

func (m *Machine) handleUser(ctx context.Context, ev Event) {
	pseudonym := m.registry.Register(ev.SenderID, ev.SenderUsername)

	// Blocked senders are dropped before anything else: no log entry, no
	// forward, no reply.
	if m.registry.IsBlocked(pseudonym) {
		metrics.BlockedDrops.Inc()
		m.logger.Debug("relay_blocked_drop", "pseudonym", pseudonym)
		return
	}

	if cmd, ok := ParseCommand(ev.Text, false); ok {
		switch cmd.(type) {
		case StartCommand, HelpCommand:
			m.handleWelcome(ctx, ev.SenderID, pseudonym)
		case ChangeNameCommand:
			m.setAwaiting(ev.SenderID, true)
			m.send(ctx, ev.SenderID, "name_prompt", nil)
		}
		return
	}

	if ev.HasPhoto() {
		m.handleUserPhoto(ctx, ev, pseudonym)
		return
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}
	m.handleUserText(ctx, ev, pseudonym, text)
}

func (m *Machine) handleWelcome(ctx context.Context, senderID int64, pseudonym string) {
	if id, ok := m.registry.Get(pseudonym); ok && id.DisplayName != "" {
		m.send(ctx, senderID, "welcome_back", map[string]string{"display_name": id.DisplayName})
		return
	}
	m.setAwaiting(senderID, true)
	m.send(ctx, senderID, "welcome_user", nil)
}

func (m *Machine) handleUserText(ctx context.Context, ev Event, pseudonym, text string) {
	if m.awaiting(ev.SenderID) {
		m.acceptDisplayName(ctx, ev.SenderID, pseudonym, ev.Text)
		return
	}

	id, ok := m.registry.Get(pseudonym)
	if !ok || id.DisplayName == "" {
		m.send(ctx, ev.SenderID, "set_name_first", nil)
		return
	}

	msg := m.store.Append(Message{
		Pseudonym: pseudonym,
		RealID:    ev.SenderID,
		Direction: DirectionInbound,
		Body:      text,
		SentAt:    ev.SentAt,
	})

	notif := m.templates.Render("new_message_notification", map[string]string{
		"display_name": id.DisplayName,
		"pseudonym":    pseudonym,
		"timestamp":    msg.SentAt.Format(notifTimeFormat),
		"message":      text,
	})
	if err := m.transport.SendText(ctx, m.operatorID, notif); err != nil {
		metrics.TransportErrors.Inc()
		m.logger.Warn("relay_forward_failed", "pseudonym", pseudonym, "error", err.Error())
		m.send(ctx, ev.SenderID, "send_error", nil)
		return
	}
	metrics.MessagesForwarded.Inc()
	m.logger.Info("relay_forwarded", "pseudonym", pseudonym)
	m.send(ctx, ev.SenderID, "message_sent", nil)
}

func (m *Machine) handleUserPhoto(ctx context.Context, ev Event, pseudonym string) {
	if m.awaiting(ev.SenderID) {
		// Not stored: a name has to exist before media is relayed.
		m.send(ctx, ev.SenderID, "set_name_for_photo", nil)
		return
	}
	id, ok := m.registry.Get(pseudonym)
	if !ok || id.DisplayName == "" {
		m.send(ctx, ev.SenderID, "start_first", nil)
		return
	}

	caption := strings.TrimSpace(ev.Photo.Caption)
	body := MediaMarker
	if caption != "" {
		body += " - " + caption
	}
	msg := m.store.Append(Message{
		Pseudonym:   pseudonym,
		RealID:      ev.SenderID,
		Direction:   DirectionInbound,
		Body:        body,
		PhotoFileID: ev.Photo.FileID,
		Caption:     caption,
		SentAt:      ev.SentAt,
	})

	captionText := ""
	if caption != "" {
		captionText = caption + "\n\n"
	}
	notif := m.templates.Render("new_photo_notification", map[string]string{
		"display_name": id.DisplayName,
		"pseudonym":    pseudonym,
		"timestamp":    msg.SentAt.Format(notifTimeFormat),
		"caption_text": captionText,
	})
	if err := m.transport.SendPhoto(ctx, m.operatorID, ev.Photo.FileID, notif); err != nil {
		metrics.TransportErrors.Inc()
		m.logger.Warn("relay_photo_forward_failed", "pseudonym", pseudonym, "error", err.Error())
		m.send(ctx, ev.SenderID, "photo_error", nil)
		return
	}
	metrics.MessagesForwarded.Inc()
	m.logger.Info("relay_photo_forwarded", "pseudonym", pseudonym)
	m.send(ctx, ev.SenderID, "photo_sent", nil)
}

func (m *Machine) acceptDisplayName(ctx context.Context, senderID int64, pseudonym, name string) {
	err := m.registry.SetDisplayName(senderID, name)
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		if vErr.Reason == reasonNameEmpty {
			m.send(ctx, senderID, "name_empty", nil)
		} else {
			m.send(ctx, senderID, "name_too_long", nil)
		}
	case errors.Is(err, ErrNameTaken):
		m.send(ctx, senderID, "name_taken", nil)
	case err != nil:
		m.logger.Warn("relay_set_name_failed", "pseudonym", pseudonym, "error", err.Error())
	default:
		m.setAwaiting(senderID, false)
		m.logger.Info("relay_name_set", "pseudonym", pseudonym)
		m.send(ctx, senderID, "name_set_success", map[string]string{
			"display_name": m.registry.DisplayNameFor(pseudonym),
		})
	}
}

func (m *Machine) awaiting(senderID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.awaitingName[senderID]
}

func (m *Machine) setAwaiting(senderID int64, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v {
		m.awaitingName[senderID] = true
		return
	}
	delete(m.awaitingName, senderID)
}

func (m *Machine) send(ctx context.Context, chatID int64, key string, vars map[string]string) {
	m.sendRaw(ctx, chatID, m.templates.Render(key, vars))
}

func (m *Machine) sendRaw(ctx context.Context, chatID int64, text string) {
	if err := m.transport.SendText(ctx, chatID, text); err != nil {
		metrics.TransportErrors.Inc()
		m.logger.Warn("relay_send_failed", "chat_id", chatID, "error", err.Error())
	}
}
