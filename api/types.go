package api

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

// Storage abstracts board persistence for handlers. ReplaceBoard returns the
// persisted, re-fetched copy.
type Storage interface {
	FetchBoard(ctx context.Context) (domain.Board, error)
	ReplaceBoard(ctx context.Context, board domain.Board) (domain.Board, error)
}

// Completer produces a raw assistant reply for the given system prompt and
// conversation history.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error)
}

// Authenticator guards routes using the session cookie.
type Authenticator interface {
	// SessionFromRequest returns the session id for an authenticated request.
	SessionFromRequest(c echo.Context) (string, error)
}

// Sessions tracks active session ids so logout (and an expired store entry)
// invalidates a token before its signature does.
type Sessions interface {
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Contains(ctx context.Context, id string) (bool, error)
}

// Limiter bounds how often a session may invoke the assistant.
type Limiter interface {
	Allow(sessionID string) bool
}

const (
	aiRequestMaxSize    = 256 * 1024       // 256 KiB of chat history
	boardRequestMaxSize = 1024 * 1024      // 1 MiB full-board payload
	loginRequestMaxSize = 4 * 1024
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type aiBoardRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type aiBoardResponse struct {
	SchemaVersion    int                    `json:"schemaVersion"`
	Board            domain.Board           `json:"board"`
	Operations       sonic.NoCopyRawMessage `json:"operations"`
	AssistantMessage string                 `json:"assistantMessage,omitempty"`
}

var emptyOperations = sonic.NoCopyRawMessage("[]")
