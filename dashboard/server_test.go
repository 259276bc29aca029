package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyejuteao/pineveilbot/internal/templates"
	"github.com/hyejuteao/pineveilbot/relay"
)

type stubTransport struct {
	sent    []string
	sendErr error
}

func (s *stubTransport) SendText(_ context.Context, _ int64, text string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *stubTransport) SendPhoto(_ context.Context, _ int64, _, _ string) error { return nil }

func (s *stubTransport) SendTyping(_ context.Context, _ int64) error { return nil }

type fixture struct {
	registry  *relay.Registry
	store     *relay.Store
	transport *stubTransport
	handler   http.Handler
	pseudonym string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := relay.NewRegistry("dash-test", nil)
	store := relay.NewStore(registry, nil)
	transport := &stubTransport{}
	tmpl, err := templates.Load("", nil)
	if err != nil {
		t.Fatalf("templates.Load error = %v", err)
	}
	router := relay.NewRouter(registry, store, transport, tmpl, nil)

	p := registry.Register(42, "nina")
	if err := registry.SetDisplayName(42, "Nina"); err != nil {
		t.Fatalf("SetDisplayName error = %v", err)
	}
	store.Append(relay.Message{Pseudonym: p, RealID: 42, Direction: relay.DirectionInbound, Body: "hello"})

	return &fixture{
		registry:  registry,
		store:     store,
		transport: transport,
		handler:   New(registry, store, router, tmpl, nil).Handler(),
		pseudonym: p,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body error = %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var agg relay.Aggregate
	if err := json.Unmarshal(rec.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if agg.TotalConversations != 1 || agg.TotalMessages != 1 || agg.RegisteredIdentities != 1 {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestConversation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/conversations/"+f.pseudonym, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		Identity relay.Identity  `json:"identity"`
		Messages []relay.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if out.Identity.DisplayName != "Nina" || len(out.Messages) != 1 {
		t.Fatalf("conversation = %+v", out)
	}

	rec = f.do(t, http.MethodGet, "/api/conversations/anon_missing1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown conversation status = %d, want 404", rec.Code)
	}
}

func TestReply(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/reply", map[string]string{
		"pseudonym": f.pseudonym,
		"text":      "hello back",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if len(f.transport.sent) != 1 || f.transport.sent[0] != "hello back" {
		t.Fatalf("sent = %v, want the reply text", f.transport.sent)
	}
	if log := f.store.Log(f.pseudonym); len(log) != 2 {
		t.Fatalf("log = %d messages, want inbound plus reply", len(log))
	}
}

func TestReplyErrorMapping(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/reply", map[string]string{
		"pseudonym": "anon_missing1",
		"text":      "hi",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown pseudonym status = %d, want 404", rec.Code)
	}

	f.transport.sendErr = errors.New("transport down")
	rec = f.do(t, http.MethodPost, "/api/reply", map[string]string{
		"pseudonym": f.pseudonym,
		"text":      "hi",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("delivery failure status = %d, want 502", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/reply", map[string]string{"pseudonym": "", "text": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d, want 400", rec.Code)
	}
}

func TestBlockUnblock(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/block", map[string]string{"pseudonym": f.pseudonym})
	if rec.Code != http.StatusOK {
		t.Fatalf("block status = %d, want 200", rec.Code)
	}
	if !f.registry.IsBlocked(f.pseudonym) {
		t.Fatalf("pseudonym not blocked")
	}

	rec = f.do(t, http.MethodPost, "/api/unblock", map[string]string{"pseudonym": f.pseudonym})
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock status = %d, want 200", rec.Code)
	}
	if f.registry.IsBlocked(f.pseudonym) {
		t.Fatalf("pseudonym still blocked")
	}

	rec = f.do(t, http.MethodPost, "/api/unblock", map[string]string{"pseudonym": "anon_missing1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unblock unknown status = %d, want 404", rec.Code)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/templates", map[string]string{
		"key":  "welcome_user",
		"text": "custom welcome",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/api/templates", map[string]string{
		"key":  "no_such_key",
		"text": "x",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown key status = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var out struct {
		Templates map[string]templates.Template `json:"templates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if out.Templates["welcome_user"].Text != "custom welcome" {
		t.Fatalf("welcome_user = %+v, want the updated text", out.Templates["welcome_user"])
	}

	rec = f.do(t, http.MethodPost, "/api/templates/reset", map[string]string{"key": "welcome_user"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/templates/reset", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-all status = %d, want 200", rec.Code)
	}
}
