package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/model"
	"medassist/pkg/sanitizer"
)

var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrSendInProgress = errors.New("a message is already being sent")
)

// QuickActions are canned openers offered before the first message.
var QuickActions = []string{
	"I need to see a doctor",
	"Book an appointment",
	"Find a specialist",
}

// Sender delivers one chat turn to the assistant backend.
type Sender interface {
	Send(ctx context.Context, message, sessionID string) (*model.ChatReply, error)
}

// Session is one conversation with the assistant. It owns the backend session
// id and the transcript; at most one turn is in flight at a time.
type Session struct {
	mu sync.Mutex

	id        string
	sender    Sender
	log       *logger.Logger
	now       func() time.Time
	remoteID  string
	messages  []model.ChatMessage
	sending   bool
	updatedAt time.Time
}

func NewSession(sender Sender, log *logger.Logger) *Session {
	return newSession(uuid.NewString(), sender, log, time.Now)
}

func newSession(id string, sender Sender, log *logger.Logger, now func() time.Time) *Session {
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		id:        id,
		sender:    sender,
		log:       log,
		now:       now,
		updatedAt: now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Send records the user's message, forwards it with the current backend
// session id and records the reply. A failed turn keeps the user message in
// the transcript and leaves the backend session id unchanged.
func (s *Session) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	text = sanitizer.Trim(text)
	if text == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return model.ChatMessage{}, ErrSendInProgress
	}
	s.sending = true
	remoteID := s.remoteID
	s.messages = append(s.messages, model.ChatMessage{
		ID:        uuid.NewString(),
		Content:   text,
		Role:      model.RoleUser,
		Timestamp: s.now(),
		SessionID: remoteID,
	})
	s.updatedAt = s.now()
	s.mu.Unlock()

	reply, err := s.sender.Send(ctx, text, remoteID)
	if err == nil && reply == nil {
		err = apperrors.Server(http.StatusOK, "assistant returned an empty reply")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	s.updatedAt = s.now()

	if err != nil {
		s.log.Warn("Chat turn failed",
			"chat_session_id", s.id,
			"error", err,
		)
		return model.ChatMessage{}, err
	}

	msg := model.ChatMessage{
		ID:             uuid.NewString(),
		Content:        reply.Response,
		Role:           model.RoleAssistant,
		Timestamp:      s.now(),
		SessionID:      reply.SessionID,
		FunctionCalled: reply.FunctionCalled,
		FunctionResult: reply.FunctionResult,
	}
	s.messages = append(s.messages, msg)
	if reply.SessionID != "" {
		s.remoteID = reply.SessionID
	}

	if reply.FunctionCalled != "" {
		s.log.Info("Assistant called a function",
			"chat_session_id", s.id,
			"function", reply.FunctionCalled,
		)
	}
	return msg, nil
}

// Clear drops the transcript and forgets the backend session, so the next
// message starts a new conversation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.remoteID = ""
	s.updatedAt = s.now()
}

func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

type Transcript struct {
	ID        string              `json:"id"`
	SessionID string              `json:"session_id,omitempty"`
	Messages  []model.ChatMessage `json:"messages"`
	Sending   bool                `json:"sending"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (s *Session) Transcript() Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]model.ChatMessage, len(s.messages))
	copy(messages, s.messages)
	return Transcript{
		ID:        s.id,
		SessionID: s.remoteID,
		Messages:  messages,
		Sending:   s.sending,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
