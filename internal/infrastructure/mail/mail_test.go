package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBrevoMailer_Send(t *testing.T) {
	var got brevoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	m := NewBrevoMailer("key", "noreply@example.com", "Backoffice")
	m.endpoint = srv.URL

	require.NoError(t, m.Send(context.Background(), "jane@example.com", "Hello", "<p>hi</p>"))
	assert.Equal(t, "noreply@example.com", got.Sender.Email)
	assert.Equal(t, "Backoffice", got.Sender.Name)
	require.Len(t, got.To, 1)
	assert.Equal(t, "jane@example.com", got.To[0].Email)
	assert.Equal(t, "<p>hi</p>", got.HTMLContent)
}

func TestBrevoMailer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	m := NewBrevoMailer("bad", "noreply@example.com", "Backoffice")
	m.endpoint = srv.URL

	err := m.Send(context.Background(), "jane@example.com", "Hello", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "unauthorized")

	assert.Error(t, m.Send(context.Background(), "", "Hello", "<p>hi</p>"))
}

type flakyMailer struct {
	calls int
	err   error
}

func (f *flakyMailer) Send(context.Context, string, string, string) error {
	f.calls++
	return f.err
}

func TestBreakerMailer_OpensAfterFailures(t *testing.T) {
	next := &flakyMailer{err: errors.New("relay down")}
	m := WithBreaker(next, BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, zap.NewNop())
	ctx := context.Background()

	assert.Error(t, m.Send(ctx, "a@example.com", "s", "h"))
	assert.Error(t, m.Send(ctx, "a@example.com", "s", "h"))
	err := m.Send(ctx, "a@example.com", "s", "h")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls)
}

func TestBreakerMailer_PassesThrough(t *testing.T) {
	next := &flakyMailer{}
	m := WithBreaker(next, BreakerConfig{}, zap.NewNop())
	require.NoError(t, m.Send(context.Background(), "a@example.com", "s", "h"))
	assert.Equal(t, 1, next.calls)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer(zap.NewNop()).Send(context.Background(), "a@example.com", "s", "h"))
}

func TestNewSMTPMailer(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com", FromName: "Backoffice"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
