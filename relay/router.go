package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hyejuteao/pineveilbot/internal/metrics"
)

// Router turns operator free-text into (recipient, payload) and delivers
// the reply. It is also the single reply entry point for the dashboard.
type Router struct {
	registry  *Registry
	store     *Store
	transport Transport
	templates TemplateStore
	logger    *slog.Logger
}

func NewRouter(registry *Registry, store *Store, transport Transport, templates TemplateStore, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry:  registry,
		store:     store,
		transport: transport,
		templates: templates,
		logger:    logger,
	}
}

// ParseReply splits operator input on the first ':' into an identifier and
// a payload. ok is false when the input has no ':' or either side trims to
// empty; the caller should answer with the format help.
func ParseReply(text string) (identifier, payload string, ok bool) {
	idx := strings.Index(text, ":")
	if idx < 0 {
		return "", "", false
	}
	identifier = strings.TrimSpace(text[:idx])
	payload = strings.TrimSpace(text[idx+1:])
	if identifier == "" || payload == "" {
		return "", "", false
	}
	return identifier, payload, true
}

// Resolve maps an identifier to a pseudonym. Identifiers carrying the
// pseudonym prefix resolve directly; anything else is matched against
// display names. Ambiguous display names surface as ErrAmbiguousName.
func (r *Router) Resolve(identifier string) (string, error) {
	if strings.HasPrefix(identifier, PseudonymPrefix) {
		if _, err := r.registry.ResolveByPseudonym(identifier); err != nil {
			return "", err
		}
		return identifier, nil
	}
	pseudonym, _, err := r.registry.ResolveByDisplayName(identifier)
	if err != nil {
		return "", err
	}
	return pseudonym, nil
}

// SendReply appends an outbound message for pseudonym and delivers it to
// the owning real id. ErrNotFound means the pseudonym is unknown; a
// *DeliveryError means the append happened but the transport send failed.
func (r *Router) SendReply(ctx context.Context, pseudonym, text string) error {
	realID, err := r.registry.ResolveByPseudonym(pseudonym)
	if err != nil {
		return err
	}

	_ = r.transport.SendTyping(ctx, realID)

	r.store.Append(Message{
		Pseudonym: pseudonym,
		RealID:    realID,
		Direction: DirectionOutbound,
		Body:      text,
	})
	if err := r.transport.SendText(ctx, realID, text); err != nil {
		metrics.TransportErrors.Inc()
		r.logger.Warn("relay_reply_delivery_failed", "pseudonym", pseudonym, "error", err.Error())
		return &DeliveryError{Err: err}
	}
	metrics.RepliesSent.Inc()
	r.logger.Info("relay_reply_sent", "pseudonym", pseudonym)
	return nil
}

// HandleOperatorText runs the full reply-routing flow for one operator
// message and answers the operator with the matching templated outcome.
func (r *Router) HandleOperatorText(ctx context.Context, operatorID int64, text string) {
	identifier, payload, ok := ParseReply(text)
	if !ok {
		r.respond(ctx, operatorID, "reply_format_help", nil)
		return
	}

	pseudonym, err := r.Resolve(identifier)
	switch {
	case errors.Is(err, ErrAmbiguousName):
		r.respond(ctx, operatorID, "name_ambiguous", map[string]string{"identifier": identifier})
		return
	case err != nil:
		r.respond(ctx, operatorID, "user_not_found", map[string]string{"identifier": identifier})
		return
	}

	var deliveryErr *DeliveryError
	err = r.SendReply(ctx, pseudonym, payload)
	switch {
	case errors.As(err, &deliveryErr):
		r.respond(ctx, operatorID, "reply_failed", map[string]string{"identifier": identifier})
	case err != nil:
		r.respond(ctx, operatorID, "user_not_found", map[string]string{"identifier": identifier})
	default:
		r.respond(ctx, operatorID, "reply_sent", map[string]string{
			"display_name": r.registry.DisplayNameFor(pseudonym),
		})
	}
}

func (r *Router) respond(ctx context.Context, chatID int64, key string, vars map[string]string) {
	if err := r.transport.SendText(ctx, chatID, r.templates.Render(key, vars)); err != nil {
		r.logger.Warn("relay_operator_notice_failed", "template", key, "error", err.Error())
	}
}
