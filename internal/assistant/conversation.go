// Package assistant keeps the chat log between the user and the AI gateway.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ldi/zenflow/internal/query"
	"github.com/ldi/zenflow/internal/store"
)

var (
	ErrEmptyQuery = errors.New("query must not be empty")
	ErrBusy       = errors.New("an assistant request is already in flight")
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request identifies one outstanding question.
type Request struct {
	ID    uint64
	Query string
}

// Asker is the part of the gateway a conversation needs.
type Asker interface {
	Ask(ctx context.Context, query, boardContext string) string
}

// Conversation allows one outstanding request at a time. Answers carrying a
// request id other than the outstanding one are dropped.
type Conversation struct {
	mu      sync.Mutex
	history []Message
	lastID  uint64
	pending uint64
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Begin records the user's question and opens a request.
func (c *Conversation) Begin(q string) (Request, error) {
	if strings.TrimSpace(q) == "" {
		return Request{}, ErrEmptyQuery
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != 0 {
		return Request{}, ErrBusy
	}
	c.lastID++
	c.pending = c.lastID
	c.history = append(c.history, Message{Role: RoleUser, Text: q})
	return Request{ID: c.lastID, Query: q}, nil
}

// Complete records the answer to request id. It reports false, recording
// nothing, when id is not the outstanding request.
func (c *Conversation) Complete(id uint64, answer string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == 0 || id != c.pending {
		return false
	}
	c.pending = 0
	c.history = append(c.history, Message{Role: RoleBot, Text: answer})
	return true
}

// Cancel abandons the outstanding request; a late answer to it is dropped.
func (c *Conversation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = 0
}

// Pending reports whether a request is outstanding.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != 0
}

// History returns a copy of the log, oldest first.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message{}, c.history...)
}

// BoardContext builds the context line from the selected project and its
// tasks matching search.
func BoardContext(snap store.Snapshot, search string) string {
	project, _ := snap.CurrentProject()
	return query.AssistantContext(project, query.TasksForProject(snap.Tasks, project.ID, search))
}

// Ask runs a whole exchange: Begin, gateway call, Complete.
func (c *Conversation) Ask(ctx context.Context, s *store.Store, a Asker, q, search string) (string, error) {
	req, err := c.Begin(q)
	if err != nil {
		return "", err
	}

	answer := a.Ask(ctx, req.Query, BoardContext(s.Snapshot(), search))
	c.Complete(req.ID, answer)
	return answer, nil
}
