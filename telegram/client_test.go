package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetUpdates(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(getUpdatesResponse{
			OK: true,
			Result: []Update{
				{UpdateID: 10, Message: &Message{
					Chat: &Chat{ID: 42, Type: "private"},
					From: &User{ID: 42, Username: "nina"},
					Text: "hello",
					Date: 1700000000,
				}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "test-token")
	updates, err := c.GetUpdates(context.Background(), 7, 2*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates error = %v", err)
	}
	if gotPath != "/bottest-token/getUpdates" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.Contains(gotQuery, "offset=7") || !strings.Contains(gotQuery, "timeout=2") {
		t.Fatalf("query = %q, want offset and timeout params", gotQuery)
	}
	if len(updates) != 1 || updates[0].UpdateID != 10 || updates[0].Message.Text != "hello" {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestGetUpdatesOmitsZeroOffset(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(getUpdatesResponse{OK: true})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "t")
	if _, err := c.GetUpdates(context.Background(), 0, time.Second); err != nil {
		t.Fatalf("GetUpdates error = %v", err)
	}
	if strings.Contains(gotQuery, "offset=") {
		t.Fatalf("query = %q, want no offset param for cursor 0", gotQuery)
	}
}

func TestGetUpdatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(okResponse{OK: false, ErrorCode: 401, Description: "Unauthorized"})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "bad")
	_, err := c.GetUpdates(context.Background(), 0, time.Second)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("GetUpdates error = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusUnauthorized || reqErr.ErrorCode != 401 {
		t.Fatalf("RequestError = %+v", reqErr)
	}
	if !strings.Contains(reqErr.Error(), "Unauthorized") {
		t.Fatalf("Error() = %q, want the API description", reqErr.Error())
	}
}

func TestSendText(t *testing.T) {
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(okResponse{OK: true})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "t")
	if err := c.SendText(context.Background(), 42, "hi there"); err != nil {
		t.Fatalf("SendText error = %v", err)
	}
	if gotBody.ChatID != 42 || gotBody.Text != "hi there" {
		t.Fatalf("request body = %+v", gotBody)
	}

	// Blank text is replaced, never rejected by the API for emptiness.
	if err := c.SendText(context.Background(), 42, "   "); err != nil {
		t.Fatalf("SendText(blank) error = %v", err)
	}
	if gotBody.Text != "(empty)" {
		t.Fatalf("blank text sent as %q", gotBody.Text)
	}
}

func TestSendTextOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(okResponse{OK: false, ErrorCode: 403, Description: "Forbidden: bot was blocked by the user"})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "t")
	err := c.SendText(context.Background(), 42, "hi")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.ErrorCode != 403 {
		t.Fatalf("SendText error = %v, want 403 *RequestError", err)
	}
}

func TestSendPhoto(t *testing.T) {
	var gotBody sendPhotoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(okResponse{OK: true})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "t")
	if err := c.SendPhoto(context.Background(), 42, "file-1", "caption"); err != nil {
		t.Fatalf("SendPhoto error = %v", err)
	}
	if gotBody.Photo != "file-1" || gotBody.Caption != "caption" {
		t.Fatalf("request body = %+v", gotBody)
	}

	if err := c.SendPhoto(context.Background(), 42, " ", ""); err == nil {
		t.Fatalf("SendPhoto(no file id) error = nil, want error")
	}
}

func TestIsPollTimeout(t *testing.T) {
	if !IsPollTimeout(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded not treated as poll timeout")
	}
	if !IsPollTimeout(errors.New("Get \"x\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)")) {
		t.Fatalf("http client timeout not treated as poll timeout")
	}
	if IsPollTimeout(nil) {
		t.Fatalf("nil treated as poll timeout")
	}
	if IsPollTimeout(errors.New("connection refused")) {
		t.Fatalf("connection refused treated as poll timeout")
	}
}
