package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"medassist/pkg/logger"
)

// Refresher reloads a Directory on a cron schedule so that doctors added on
// the backend show up without a restart.
type Refresher struct {
	cron      *cron.Cron
	directory *Directory
	timeout   time.Duration
	log       *logger.Logger
}

// NewRefresher schedules directory reloads. schedule uses standard cron
// syntax or descriptors such as "@every 5m".
func NewRefresher(directory *Directory, schedule string, timeout time.Duration, log *logger.Logger) (*Refresher, error) {
	r := &Refresher{
		cron:      cron.New(),
		directory: directory,
		timeout:   timeout,
		log:       log,
	}
	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid directory refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.directory.Load(ctx); err != nil {
		r.log.Warn("Scheduled directory refresh failed", "error", err)
	}
}

func (r *Refresher) Start() {
	r.cron.Start()
	r.log.Info("Directory refresh scheduled", "entries", len(r.cron.Entries()))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
