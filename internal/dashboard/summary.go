package dashboard

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"medassist/pkg/logger"
	"medassist/pkg/model"
	"medassist/pkg/sanitizer"
)

// FeaturedCount is the number of doctors shown on the landing page.
const FeaturedCount = 3

type DoctorSource interface {
	GetAll(ctx context.Context) ([]model.Doctor, error)
}

type AppointmentSource interface {
	GetAll(ctx context.Context) ([]model.Appointment, error)
}

type Summary struct {
	FeaturedDoctors      []model.Doctor `json:"featured_doctors"`
	DoctorCount          int            `json:"doctor_count"`
	SpecialtyCount       int            `json:"specialty_count"`
	AppointmentCount     int            `json:"appointment_count"`
	AppointmentsByStatus map[string]int `json:"appointments_by_status"`
	Upcoming             int            `json:"upcoming_appointments"`
	Warnings             []string       `json:"warnings,omitempty"`
	GeneratedAt          time.Time      `json:"generated_at"`
}

// Builder assembles the landing-page summary. A failing source degrades its
// part of the summary to empty and adds a warning; it never fails the whole.
type Builder struct {
	doctors      DoctorSource
	appointments AppointmentSource
	loc          *time.Location
	now          func() time.Time
	log          *logger.Logger
}

func NewBuilder(doctors DoctorSource, appointments AppointmentSource, loc *time.Location, log *logger.Logger) *Builder {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Builder{
		doctors:      doctors,
		appointments: appointments,
		loc:          loc,
		now:          time.Now,
		log:          log,
	}
}

func (b *Builder) Build(ctx context.Context) Summary {
	summary := Summary{
		FeaturedDoctors:      []model.Doctor{},
		AppointmentsByStatus: map[string]int{},
	}

	// Loaders report failures as warnings and return nil, so one source
	// going down never cancels the other; gctx only carries the caller's
	// cancellation to both.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	warn := func(msg string, err error) {
		b.log.Warn(msg, "error", err)
		mu.Lock()
		summary.Warnings = append(summary.Warnings, msg)
		mu.Unlock()
	}

	g.Go(func() error {
		doctors, err := b.doctors.GetAll(gctx)
		if err != nil {
			warn("doctors are unavailable", err)
			return nil
		}
		specialties := make([]string, 0, len(doctors))
		for _, d := range doctors {
			specialties = append(specialties, d.Specialty)
		}
		n := min(FeaturedCount, len(doctors))

		mu.Lock()
		summary.FeaturedDoctors = append(summary.FeaturedDoctors, doctors[:n]...)
		summary.DoctorCount = len(doctors)
		summary.SpecialtyCount = len(sanitizer.SortedUnique(specialties))
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		appointments, err := b.appointments.GetAll(gctx)
		if err != nil {
			warn("appointments are unavailable", err)
			return nil
		}
		now := b.now().In(b.loc)
		byStatus := make(map[string]int)
		upcoming := 0
		for _, a := range appointments {
			byStatus[a.Status]++
			if a.Status != model.AppointmentScheduled {
				continue
			}
			if at, err := a.ScheduledAt(b.loc); err == nil && !at.Before(now) {
				upcoming++
			}
		}

		mu.Lock()
		summary.AppointmentCount = len(appointments)
		summary.AppointmentsByStatus = byStatus
		summary.Upcoming = upcoming
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		b.log.Error("Dashboard loader failed", "error", err)
	}
	summary.GeneratedAt = b.now()
	return summary
}
