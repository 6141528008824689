package service

import (
	"context"
	"sync"
	"time"

	"medassist/internal/chat"
	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
	"medassist/pkg/model"
)

const sessionKindChat = "chat"

type ChatService interface {
	Create(ctx context.Context) chat.Transcript
	Get(ctx context.Context, id string) (chat.Transcript, error)
	Send(ctx context.Context, id, text string) (model.ChatMessage, error)
	Clear(ctx context.Context, id string) (chat.Transcript, error)
	Delete(ctx context.Context, id string) error
	Sweep(cutoff time.Time) int
	QuickActions() []string
	Active() int
}

// chatService keeps chat sessions in process memory only; a restart starts
// every conversation over.
type chatService struct {
	mu       sync.Mutex
	sessions map[string]*chat.Session
	sender   chat.Sender
	metrics  *metrics.ClinicMetrics
	log      *logger.Logger
}

func NewChatService(sender chat.Sender, m *metrics.ClinicMetrics, log *logger.Logger) ChatService {
	if log == nil {
		log = logger.Discard()
	}
	return &chatService{
		sessions: make(map[string]*chat.Session),
		sender:   sender,
		metrics:  m,
		log:      log,
	}
}

func (s *chatService) Create(ctx context.Context) chat.Transcript {
	session := chat.NewSession(s.sender, s.log)

	s.mu.Lock()
	s.sessions[session.ID()] = session
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(sessionKindChat, active)

	s.log.Info("Chat session started", "chat_session_id", session.ID())
	return session.Transcript()
}

func (s *chatService) session(id string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Chat session", id)
	}
	return session, nil
}

func (s *chatService) Get(ctx context.Context, id string) (chat.Transcript, error) {
	session, err := s.session(id)
	if err != nil {
		return chat.Transcript{}, err
	}
	return session.Transcript(), nil
}

func (s *chatService) Send(ctx context.Context, id, text string) (model.ChatMessage, error) {
	session, err := s.session(id)
	if err != nil {
		return model.ChatMessage{}, err
	}
	msg, err := session.Send(ctx, text)
	if err != nil {
		return model.ChatMessage{}, mapChatError(err)
	}
	return msg, nil
}

func (s *chatService) Clear(ctx context.Context, id string) (chat.Transcript, error) {
	session, err := s.session(id)
	if err != nil {
		return chat.Transcript{}, err
	}
	session.Clear()
	return session.Transcript(), nil
}

func (s *chatService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	active := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return apperrors.NotFoundWithID("Chat session", id)
	}
	s.metrics.SetActiveSessions(sessionKindChat, active)
	return nil
}

func (s *chatService) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, session := range s.sessions {
		t := session.Transcript()
		if t.Sending || !t.UpdatedAt.Before(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	active := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(sessionKindChat, active)
	if removed > 0 {
		s.log.Info("Swept idle chat sessions", "removed", removed, "active", active)
	}
	return removed
}

func (s *chatService) QuickActions() []string {
	out := make([]string, len(chat.QuickActions))
	copy(out, chat.QuickActions)
	return out
}

func (s *chatService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
