package reconcile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dang-doctor/doctor-fe/internal/api"
	"github.com/dang-doctor/doctor-fe/internal/apperr"
)

type call struct {
	method string
	id     int64
	in     api.BloodSugarInput
}

type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	daily   []api.BloodSugarRecord
	record  api.BloodSugarRecord
	nextID  int64
	failing error
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeBackend) DailyBloodSugar(_ context.Context, date string) ([]api.BloodSugarRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: http.MethodGet, in: api.BloodSugarInput{Date: date}})
	return f.daily, f.failing
}

func (f *fakeBackend) GetBloodSugar(_ context.Context, id int64) (api.BloodSugarRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: http.MethodGet, id: id})
	return f.record, f.failing
}

func (f *fakeBackend) CreateBloodSugar(_ context.Context, in api.BloodSugarInput) (api.BloodSugarRecord, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: http.MethodPost, in: in})
	if f.failing != nil {
		return api.BloodSugarRecord{}, f.failing
	}
	f.nextID++
	return api.BloodSugarRecord{ID: f.nextID, BloodSugar: in.BloodSugar, MealType: in.MealType}, nil
}

func (f *fakeBackend) UpdateBloodSugar(_ context.Context, id int64, in api.BloodSugarInput) (api.BloodSugarRecord, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: http.MethodPut, id: id, in: in})
	if f.failing != nil {
		return api.BloodSugarRecord{}, f.failing
	}
	return api.BloodSugarRecord{ID: id, BloodSugar: in.BloodSugar}, nil
}

func (f *fakeBackend) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeBackend) writes() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

var testDay = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func newReconciler(t *testing.T, b Backend, opts ...Option) *Reconciler {
	t.Helper()
	opts = append([]Option{WithLocation(time.UTC), WithClock(func() time.Time { return testDay.Add(9 * time.Hour) })}, opts...)
	return New(b, opts...)
}

func TestSubmitPostsOnceThenPuts(t *testing.T) {
	backend := &fakeBackend{nextID: 99}
	r := newReconciler(t, backend)
	require.NoError(t, r.LoadForDate(t.Context(), testDay))

	require.NoError(t, r.SetValue(SlotMorning, 105, testDay.Add(8*time.Hour+15*time.Minute)))
	require.NoError(t, r.Submit(t.Context(), SlotMorning))

	b, _ := r.Bucket(SlotMorning)
	require.NotNil(t, b.ServerID)
	assert.Equal(t, int64(100), *b.ServerID)
	assert.Equal(t, StateCreated, b.State)

	require.NoError(t, r.Submit(t.Context(), SlotMorning))
	require.NoError(t, r.SetValue(SlotMorning, 110, time.Time{}))
	require.NoError(t, r.Submit(t.Context(), SlotMorning))

	writes := backend.writes()
	require.Len(t, writes, 3)
	assert.Equal(t, http.MethodPost, writes[0].method)
	assert.Equal(t, api.BloodSugarInput{BloodSugar: 105, MealType: "아침", Date: "2025-03-01", Time: "08:15"}, writes[0].in)
	for _, w := range writes[1:] {
		assert.Equal(t, http.MethodPut, w.method)
		assert.Equal(t, int64(100), w.id)
	}
	assert.Equal(t, 110.0, writes[2].in.BloodSugar)

	b, _ = r.Bucket(SlotMorning)
	assert.Equal(t, StateUpdated, b.State)
	assert.Equal(t, int64(100), *b.ServerID)
}

func TestFailedSubmitLeavesBucketUnchanged(t *testing.T) {
	remote := &api.RequestError{Method: http.MethodPost, Path: "/blood-sugar/", Status: http.StatusInternalServerError, Body: "boom"}
	backend := &fakeBackend{failing: remote}
	r := newReconciler(t, backend)
	require.NoError(t, r.SetValue(SlotNoon, 140, testDay.Add(13*time.Hour)))

	before, _ := r.Bucket(SlotNoon)
	err := r.Submit(t.Context(), SlotNoon)
	var rerr *api.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusInternalServerError, rerr.Status)
	assert.Equal(t, "boom", rerr.Body)

	after, _ := r.Bucket(SlotNoon)
	assert.Equal(t, before, after)
	assert.Nil(t, after.ServerID)

	err = r.Submit(t.Context(), SlotNoon)
	require.ErrorAs(t, err, &rerr)

	writes := backend.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, writes[0], writes[1])

	backend.mu.Lock()
	backend.failing = nil
	backend.mu.Unlock()
	require.NoError(t, r.Submit(t.Context(), SlotNoon))
	b, _ := r.Bucket(SlotNoon)
	require.NotNil(t, b.ServerID)
}

func TestFailedUpdateRestoresState(t *testing.T) {
	backend := &fakeBackend{daily: []api.BloodSugarRecord{{ID: 5, BloodSugar: 90, MealType: "저녁", Time: "19:00"}}}
	r := newReconciler(t, backend)
	require.NoError(t, r.LoadForDate(t.Context(), testDay))
	require.NoError(t, r.SetValue(SlotEvening, 95, time.Time{}))

	backend.failing = errors.New("network down")
	require.Error(t, r.Submit(t.Context(), SlotEvening))
	b, _ := r.Bucket(SlotEvening)
	assert.Equal(t, StateEditing, b.State)
	assert.Equal(t, int64(5), *b.ServerID)
	assert.Equal(t, 95.0, *b.Value)
}

func TestLoadForDateMapsLabels(t *testing.T) {
	backend := &fakeBackend{daily: []api.BloodSugarRecord{
		{ID: 1, BloodSugar: 95, MealType: "기상직후", Date: "2025-03-01", Time: "06:30"},
		{ID: 2, BloodSugar: 120, MealType: "아침", Date: "2025-03-01", Time: "08:00"},
		{ID: 3, BloodSugar: 135, MealType: "점심", Date: "2025-03-01", Time: "12:30"},
		{ID: 4, BloodSugar: 128, MealType: "저녁", Date: "2025-03-01", Time: "19:10:00"},
		{ID: 5, BloodSugar: 300, MealType: "간식", Date: "2025-03-01", Time: "22:00"},
	}}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	r := newReconciler(t, backend, WithLogger(logger))

	require.NoError(t, r.LoadForDate(t.Context(), testDay))

	want := map[Slot]float64{SlotWakeup: 95, SlotMorning: 120, SlotNoon: 135, SlotEvening: 128}
	for slot, v := range want {
		b, ok := r.Bucket(slot)
		require.True(t, ok)
		require.NotNil(t, b.Value, slot)
		assert.Equal(t, v, *b.Value, slot)
		assert.Equal(t, StateSynced, b.State)
	}
	ev, _ := r.Bucket(SlotEvening)
	assert.Equal(t, testDay.Add(19*time.Hour+10*time.Minute), ev.Time)
	assert.Contains(t, logs.String(), "간식")

	sum := r.Summary()
	assert.Equal(t, "2025-03-01", sum.Date)
	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, 95.0, sum.Min)
	assert.Equal(t, 135.0, sum.Max)
	assert.Equal(t, 119.5, sum.Average)
}

func TestLoadForDateResetsBuckets(t *testing.T) {
	backend := &fakeBackend{}
	r := newReconciler(t, backend)
	require.NoError(t, r.SetValue(SlotWakeup, 100, time.Time{}))

	require.NoError(t, r.LoadForDate(t.Context(), testDay.AddDate(0, 0, 1)))
	assert.Equal(t, "2025-03-02", r.Date())
	for _, b := range r.Buckets() {
		assert.Equal(t, StateEmpty, b.State)
		assert.Nil(t, b.Value)
		assert.Nil(t, b.ServerID)
	}
}

func TestLoadForDateError(t *testing.T) {
	backend := &fakeBackend{failing: &api.RequestError{Status: http.StatusUnauthorized}}
	r := newReconciler(t, backend)
	err := r.LoadForDate(t.Context(), testDay)
	var rerr *api.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Len(t, r.Buckets(), 4)
}

func TestSubmitWithoutValueIsValidationError(t *testing.T) {
	backend := &fakeBackend{}
	r := newReconciler(t, backend)
	err := r.Submit(t.Context(), SlotWakeup)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "blood_sugar", verr.Field)
	assert.Empty(t, backend.writes())
}

func TestSetValueValidation(t *testing.T) {
	r := newReconciler(t, &fakeBackend{})
	var verr *apperr.ValidationError
	require.ErrorAs(t, r.SetValue("snack", 100, time.Time{}), &verr)
	require.ErrorAs(t, r.SetValue(SlotNoon, 0, time.Time{}), &verr)
	require.ErrorAs(t, r.SetValue(SlotNoon, -3, time.Time{}), &verr)
}

func TestConcurrentSubmitForSameSlot(t *testing.T) {
	backend := &fakeBackend{entered: make(chan struct{}, 1), block: make(chan struct{})}
	r := newReconciler(t, backend)
	require.NoError(t, r.SetValue(SlotNoon, 130, time.Time{}))

	done := make(chan error, 1)
	go func() { done <- r.Submit(t.Context(), SlotNoon) }()
	<-backend.entered

	require.ErrorIs(t, r.Submit(t.Context(), SlotNoon), ErrSubmitInFlight)
	require.NoError(t, r.SetValue(SlotMorning, 99, time.Time{}))

	close(backend.block)
	require.NoError(t, <-done)
	assert.Len(t, backend.writes(), 1)
}

func TestEditDuringSubmitStaysEditing(t *testing.T) {
	backend := &fakeBackend{entered: make(chan struct{}, 1), block: make(chan struct{})}
	r := newReconciler(t, backend)
	require.NoError(t, r.SetValue(SlotEvening, 140, time.Time{}))

	done := make(chan error, 1)
	go func() { done <- r.Submit(t.Context(), SlotEvening) }()
	<-backend.entered

	require.NoError(t, r.SetValue(SlotEvening, 150, time.Time{}))
	close(backend.block)
	require.NoError(t, <-done)

	b, _ := r.Bucket(SlotEvening)
	require.NotNil(t, b.ServerID)
	assert.Equal(t, StateEditing, b.State)
	assert.Equal(t, 150.0, *b.Value)

	backend.entered, backend.block = nil, nil
	require.NoError(t, r.Submit(t.Context(), SlotEvening))
	writes := backend.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, http.MethodPut, writes[1].method)
	assert.Equal(t, 150.0, writes[1].in.BloodSugar)

	b, _ = r.Bucket(SlotEvening)
	assert.Equal(t, StateUpdated, b.State)
}

func TestLoadRecordSeedsBucket(t *testing.T) {
	backend := &fakeBackend{record: api.BloodSugarRecord{ID: 77, BloodSugar: 111, MealType: "점심", Date: "2025-02-10", Time: "12:05"}}
	r := newReconciler(t, backend)

	b, err := r.LoadRecord(t.Context(), 77)
	require.NoError(t, err)
	assert.Equal(t, SlotNoon, b.Key)
	assert.Equal(t, "2025-02-10", r.Date())

	require.NoError(t, r.SetValue(SlotNoon, 115, time.Time{}))
	require.NoError(t, r.Submit(t.Context(), SlotNoon))
	writes := backend.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPut, writes[0].method)
	assert.Equal(t, int64(77), writes[0].id)
	assert.Equal(t, "2025-02-10", writes[0].in.Date)
}

func TestParseSlot(t *testing.T) {
	for label, want := range map[string]Slot{"기상직후": SlotWakeup, "아침": SlotMorning, "점심": SlotNoon, "저녁": SlotEvening, "Evening": SlotEvening} {
		got, err := ParseSlot(label)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSlot("야식")
	assert.ErrorIs(t, err, ErrUnrecognizedLabel)
	assert.Equal(t, "기상직후", SlotWakeup.Label())
}
