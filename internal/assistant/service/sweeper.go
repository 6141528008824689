package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"medassist/pkg/logger"
	"medassist/pkg/middleware"
)

// Sweeper expires idle booking and chat sessions and stale idempotency
// entries on a cron schedule.
type Sweeper struct {
	cron        *cron.Cron
	bookings    BookingService
	chats       ChatService
	idempotency *middleware.IdempotencyStore
	ttl         time.Duration
	log         *logger.Logger
	now         func() time.Time
}

func NewSweeper(schedule string, ttl time.Duration, bookings BookingService, chats ChatService, idempotency *middleware.IdempotencyStore, log *logger.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:        cron.New(),
		bookings:    bookings,
		chats:       chats,
		idempotency: idempotency,
		ttl:         ttl,
		log:         log,
		now:         time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Sweep() {
	cutoff := s.now().Add(-s.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.bookings != nil {
		if _, err := s.bookings.Sweep(ctx, cutoff); err != nil {
			s.log.Warn("Booking session sweep failed", "error", err)
		}
	}
	if s.chats != nil {
		s.chats.Sweep(cutoff)
	}
	if s.idempotency != nil {
		if n := s.idempotency.Sweep(); n > 0 {
			s.log.Debug("Expired idempotency entries", "removed", n)
		}
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("Session sweep scheduled", "ttl", s.ttl)
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
