package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/pkg/logger"
	"medassist/pkg/model"
)

type fakeSource struct {
	mu      sync.Mutex
	doctors []model.Doctor
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (s *fakeSource) GetAll(ctx context.Context) ([]model.Doctor, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.Doctor(nil), s.doctors...), nil
}

func (s *fakeSource) set(doctors []model.Doctor, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors, s.err = doctors, err
}

var sampleDoctors = []model.Doctor{
	{ID: 1, Name: "Dr. Sarah Johnson", Specialty: "Cardiology", Department: "Heart Center"},
	{ID: 2, Name: "Dr. Michael Chen", Specialty: "Orthopedics", Department: "Bone & Joint"},
	{ID: 3, Name: "Dr. Emily Davis", Specialty: "Dermatology", Department: "Skin Care"},
	{ID: 4, Name: "Dr. Robert Wilson", Specialty: "General Medicine", Department: "Primary Care"},
	{ID: 5, Name: "Dr. Amanda Heart", Specialty: "Neurology", Department: "Neuro Sciences"},
}

func loadedDirectory(t *testing.T) *Directory {
	t.Helper()
	d := New(&fakeSource{doctors: sampleDoctors}, logger.Discard(), nil)
	_, err := d.Load(context.Background())
	require.NoError(t, err)
	return d
}

func ids(doctors []model.Doctor) []int64 {
	out := make([]int64, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, d.ID)
	}
	return out
}

func TestDirectory_Filter(t *testing.T) {
	d := loadedDirectory(t)

	tests := []struct {
		name      string
		search    string
		specialty string
		want      []int64
	}{
		{"no filters", "", "", []int64{1, 2, 3, 4, 5}},
		{"all specialty", "", "all", []int64{1, 2, 3, 4, 5}},
		{"search matches specialty case-insensitively", "cardio", "all", []int64{1}},
		{"search matches name", "CHEN", "", []int64{2}},
		{"search matches department", "primary", "", []int64{4}},
		{"search across fields keeps order", "heart", "", []int64{1, 5}},
		{"search surrounding whitespace ignored", "  skin  ", "", []int64{3}},
		{"exact specialty", "", "Neurology", []int64{5}},
		{"specialty is not a substring match", "", "Neuro", []int64{}},
		{"search intersected with specialty", "heart", "Neurology", []int64{5}},
		{"no match", "pediatrics", "", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(d.Filter(tt.search, tt.specialty)))
		})
	}
}

func TestDirectory_FilterIsIdempotent(t *testing.T) {
	d := loadedDirectory(t)

	first := d.Filter("dr", "all")
	second := d.Filter("dr", "all")

	assert.Equal(t, first, second)
	assert.Len(t, d.Doctors(), len(sampleDoctors))
}

func TestDirectory_FindByID(t *testing.T) {
	d := loadedDirectory(t)

	doc, ok := d.FindByID(3)
	require.True(t, ok)
	assert.Equal(t, "Dr. Emily Davis", doc.Name)

	_, ok = d.FindByID(99)
	assert.False(t, ok)
}

func TestDirectory_EmptyBeforeLoad(t *testing.T) {
	d := New(&fakeSource{}, logger.Discard(), nil)

	assert.Empty(t, d.Doctors())
	assert.Empty(t, d.Filter("", "all"))
	_, ok := d.FindByID(1)
	assert.False(t, ok)
	assert.Empty(t, d.Featured(3))
}

func TestDirectory_FailedFirstLoadLeavesCacheEmpty(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	d := New(src, logger.Discard(), nil)

	_, err := d.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, d.Len())
	_, lastErr := d.Status()
	assert.Error(t, lastErr)
}

func TestDirectory_FailedRefreshKeepsLastGoodList(t *testing.T) {
	src := &fakeSource{doctors: sampleDoctors}
	d := New(src, logger.Discard(), nil)
	_, err := d.Load(context.Background())
	require.NoError(t, err)
	loadedAt, _ := d.Status()

	src.set(nil, errors.New("timeout"))
	_, err = d.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, len(sampleDoctors), d.Len())
	stillLoadedAt, lastErr := d.Status()
	assert.Equal(t, loadedAt, stillLoadedAt)
	assert.Error(t, lastErr)

	src.set(sampleDoctors[:2], nil)
	_, err = d.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	_, lastErr = d.Status()
	assert.NoError(t, lastErr)
	_, ok := d.FindByID(5)
	assert.False(t, ok, "index must follow the new list")
}

func TestDirectory_ConcurrentLoadsShareOneCall(t *testing.T) {
	src := &fakeSource{doctors: sampleDoctors, gate: make(chan struct{})}
	d := New(src, logger.Discard(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Load(context.Background())
		}()
	}

	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, len(sampleDoctors), d.Len())
}

func TestDirectory_ReadsDoNotBlockOnLoad(t *testing.T) {
	src := &fakeSource{doctors: sampleDoctors}
	d := New(src, logger.Discard(), nil)
	_, err := d.Load(context.Background())
	require.NoError(t, err)

	src.gate = make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _ = d.Load(context.Background())
		close(done)
	}()
	for src.calls.Load() < 2 {
		time.Sleep(time.Millisecond)
	}

	assert.Len(t, d.Filter("", ""), len(sampleDoctors))
	close(src.gate)
	<-done
}

func TestDirectory_SpecialtiesAndFeatured(t *testing.T) {
	src := &fakeSource{doctors: append(sampleDoctors, model.Doctor{ID: 6, Name: "Dr. Second", Specialty: "Cardiology"})}
	d := New(src, logger.Discard(), nil)
	_, err := d.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Cardiology", "Dermatology", "General Medicine", "Neurology", "Orthopedics"}, d.Specialties())
	assert.Equal(t, []int64{1, 2, 3}, ids(d.Featured(3)))
	assert.Len(t, d.Featured(50), 6)
}

func TestDirectory_ReturnedSlicesAreCopies(t *testing.T) {
	d := loadedDirectory(t)

	list := d.Doctors()
	list[0].Name = "mutated"

	doc, _ := d.FindByID(1)
	assert.Equal(t, "Dr. Sarah Johnson", doc.Name)
}

func TestRefresher_RejectsBadSchedule(t *testing.T) {
	d := New(&fakeSource{}, logger.Discard(), nil)

	_, err := NewRefresher(d, "every now and then", time.Second, logger.Discard())
	assert.Error(t, err)

	r, err := NewRefresher(d, "@every 1h", time.Second, logger.Discard())
	require.NoError(t, err)
	r.Start()
	r.Stop()
}

func TestRefresher_RefreshLoadsDirectory(t *testing.T) {
	src := &fakeSource{doctors: sampleDoctors}
	d := New(src, logger.Discard(), nil)
	r, err := NewRefresher(d, "@every 1h", time.Second, logger.Discard())
	require.NoError(t, err)

	r.refresh()

	assert.Equal(t, len(sampleDoctors), d.Len())
}

func TestDirectory_CancelledCallerDoesNotAbortSharedLoad(t *testing.T) {
	src := &fakeSource{doctors: sampleDoctors, gate: make(chan struct{})}
	d := New(src, logger.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := d.Load(ctx)
		first <- err
	}()
	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	second := make(chan []model.Doctor, 1)
	go func() {
		doctors, _ := d.Load(context.Background())
		second <- doctors
	}()

	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(src.gate)
	assert.Len(t, <-second, len(sampleDoctors))
	assert.Equal(t, len(sampleDoctors), d.Len())
}
