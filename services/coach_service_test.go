package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteReturnsModelReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Stay hydrated."}}]}`))
	}))
	defer server.Close()

	s := &CoachService{
		client: &http.Client{Timeout: 5 * time.Second},
		apiURL: server.URL,
		apiKey: "test-key",
		model:  "gpt-4o-mini",
	}

	reply, err := s.complete(context.Background(), []chatCompletionMessage{
		{Role: "user", Content: "Any tips?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Stay hydrated.", reply)
}

func TestCompleteErrorsOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := &CoachService{
		client: &http.Client{Timeout: 5 * time.Second},
		apiURL: server.URL,
	}

	_, err := s.complete(context.Background(), []chatCompletionMessage{
		{Role: "user", Content: "hello"},
	})
	assert.Error(t, err)
}

func TestCompleteErrorsWhenUnconfigured(t *testing.T) {
	s := &CoachService{client: &http.Client{Timeout: time.Second}}

	_, err := s.complete(context.Background(), nil)
	assert.Error(t, err)
}

func TestCompleteErrorsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	s := &CoachService{
		client: &http.Client{Timeout: 5 * time.Second},
		apiURL: server.URL,
	}

	_, err := s.complete(context.Background(), []chatCompletionMessage{{Role: "user", Content: "hi"}})
	assert.Error(t, err)
}

func TestFallbackTipIsStable(t *testing.T) {
	s := &CoachService{}
	tip := s.fallbackTip()
	assert.NotEmpty(t, tip)
	assert.Equal(t, tip, s.fallbackTip())
}
