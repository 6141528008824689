package directory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"medassist/pkg/logger"
	"medassist/pkg/metrics"
	"medassist/pkg/model"
	"medassist/pkg/sanitizer"
)

// Source fetches the full doctor list from the clinic backend.
type Source interface {
	GetAll(ctx context.Context) ([]model.Doctor, error)
}

// Directory is a read-mostly cache of the clinic's doctors. Reads never block
// on a load in progress; concurrent loads share one backend call.
type Directory struct {
	source  Source
	log     *logger.Logger
	metrics *metrics.ClinicMetrics

	mu       sync.RWMutex
	doctors  []model.Doctor
	byID     map[int64]int
	loadedAt time.Time
	lastErr  error

	group singleflight.Group
}

func New(source Source, log *logger.Logger, m *metrics.ClinicMetrics) *Directory {
	if log == nil {
		log = logger.Discard()
	}
	return &Directory{
		source:  source,
		log:     log,
		metrics: m,
		byID:    make(map[int64]int),
	}
}

// Load fetches the doctor list and replaces the cached copy. On failure the
// previous list is kept; before the first successful load that list is empty.
//
// The shared backend call is detached from any one caller's cancellation and
// bounded by the client timeout. A caller whose ctx ends stops waiting; the
// load still completes for the others.
func (d *Directory) Load(ctx context.Context) ([]model.Doctor, error) {
	ch := d.group.DoChan("load", func() (any, error) {
		return d.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			d.log.Debug("Directory load coalesced")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneDoctors(res.Val.([]model.Doctor)), nil
	}
}

func (d *Directory) load(ctx context.Context) ([]model.Doctor, error) {
	started := time.Now()
	doctors, err := d.source.GetAll(ctx)
	if err != nil {
		d.mu.Lock()
		d.lastErr = err
		kept := len(d.doctors)
		d.mu.Unlock()

		d.metrics.ObserveDirectoryLoad(metrics.OutcomeError, kept)
		d.log.Warn("Failed to load doctor directory",
			"error", err,
			"cached_doctors", kept,
		)
		return nil, err
	}

	byID := make(map[int64]int, len(doctors))
	for i, doc := range doctors {
		if _, dup := byID[doc.ID]; !dup {
			byID[doc.ID] = i
		}
	}

	d.mu.Lock()
	d.doctors = cloneDoctors(doctors)
	d.byID = byID
	d.loadedAt = time.Now()
	d.lastErr = nil
	d.mu.Unlock()

	d.metrics.ObserveDirectoryLoad(metrics.OutcomeSuccess, len(doctors))
	d.log.Info("Doctor directory loaded",
		"doctors", len(doctors),
		"duration", time.Since(started),
	)
	return doctors, nil
}

// Doctors returns the cached list in backend order.
func (d *Directory) Doctors() []model.Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneDoctors(d.doctors)
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.doctors)
}

func (d *Directory) FindByID(id int64) (model.Doctor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.byID[id]
	if !ok {
		return model.Doctor{}, false
	}
	return d.doctors[i], true
}

// Filter returns the doctors whose name, specialty or department contains
// search (case-insensitive) and whose specialty equals specialty. An empty
// search matches everyone; an empty specialty or "all" disables the
// specialty filter. Order follows the cached list.
func (d *Directory) Filter(search, specialty string) []model.Doctor {
	term := sanitizer.NormalizeSearch(search)
	specialty = sanitizer.Trim(specialty)
	anySpecialty := specialty == "" || specialty == model.SpecialtyAll

	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]model.Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		if !anySpecialty && doc.Specialty != specialty {
			continue
		}
		if !matches(doc, term) {
			continue
		}
		result = append(result, doc)
	}
	return result
}

func matches(doc model.Doctor, term string) bool {
	return sanitizer.ContainsFold(doc.Name, term) ||
		sanitizer.ContainsFold(doc.Specialty, term) ||
		sanitizer.ContainsFold(doc.Department, term)
}

// Specialties lists the distinct specialties in the cache, sorted.
func (d *Directory) Specialties() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.doctors))
	for _, doc := range d.doctors {
		names = append(names, doc.Specialty)
	}
	return sanitizer.SortedUnique(names)
}

// Featured returns up to n doctors from the head of the list.
func (d *Directory) Featured(n int) []model.Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n > len(d.doctors) {
		n = len(d.doctors)
	}
	if n < 0 {
		n = 0
	}
	return cloneDoctors(d.doctors[:n])
}

// Status reports when the cache was last filled and the error of the most
// recent failed load, if it has not been superseded by a successful one.
func (d *Directory) Status() (loadedAt time.Time, lastErr error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt, d.lastErr
}

func cloneDoctors(in []model.Doctor) []model.Doctor {
	out := make([]model.Doctor, len(in))
	copy(out, in)
	return out
}
