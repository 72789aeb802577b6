// Package reconcile keeps a day's blood sugar measurements as one bucket per
// time slot and syncs each bucket to the backend, creating it the first time
// and updating it afterwards.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dang-doctor/doctor-fe/internal/api"
	"github.com/dang-doctor/doctor-fe/internal/apperr"
	"github.com/dang-doctor/doctor-fe/internal/logutil"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ErrSubmitInFlight is returned when a bucket already has a submit running.
var ErrSubmitInFlight = errors.New("a submit for this slot is already in flight")

// Backend is the part of the API client the reconciler needs.
type Backend interface {
	DailyBloodSugar(ctx context.Context, date string) ([]api.BloodSugarRecord, error)
	GetBloodSugar(ctx context.Context, id int64) (api.BloodSugarRecord, error)
	CreateBloodSugar(ctx context.Context, in api.BloodSugarInput) (api.BloodSugarRecord, error)
	UpdateBloodSugar(ctx context.Context, id int64, in api.BloodSugarInput) (api.BloodSugarRecord, error)
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLocation sets the zone measurement times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconciler holds the buckets for one date at a time. Loading a new date
// discards the old buckets, and results of requests issued for the old date
// are dropped when they arrive.
type Reconciler struct {
	backend Backend
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time

	mu         sync.Mutex
	date       time.Time
	generation uint64
	buckets    map[Slot]*Bucket
	inFlight   map[Slot]bool
}

func New(backend Backend, opts ...Option) *Reconciler {
	r := &Reconciler{
		backend: backend,
		logger:  logutil.Discard(),
		loc:     time.Local,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetLocked(r.now())
	return r
}

func (r *Reconciler) resetLocked(date time.Time) uint64 {
	d := date.In(r.loc)
	r.date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc)
	r.generation++
	r.buckets = make(map[Slot]*Bucket, len(Slots))
	for _, s := range Slots {
		r.buckets[s] = &Bucket{Key: s, State: StateEmpty}
	}
	r.inFlight = make(map[Slot]bool, len(Slots))
	return r.generation
}

// Date returns the active date as YYYY-MM-DD.
func (r *Reconciler) Date() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.date.Format(dateLayout)
}

// LoadForDate resets every bucket to empty for date and fills them from the
// server. Rows whose meal_type maps to no slot are skipped and logged.
func (r *Reconciler) LoadForDate(ctx context.Context, date time.Time) error {
	r.mu.Lock()
	gen := r.resetLocked(date)
	day := r.date.Format(dateLayout)
	r.mu.Unlock()

	defer logutil.NewTimingLogger(r.logger, time.Now(), "load blood sugar day", "date", day)()

	rows, err := r.backend.DailyBloodSugar(ctx, day)
	if err != nil {
		return logutil.LogAndWrapErr(r.logger, "load blood sugar for "+day, err, "date", day)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug("dropping stale day load", "date", day)
		return nil
	}
	for _, row := range rows {
		slot, err := ParseSlot(row.MealType)
		if err != nil {
			r.logger.Warn("skipping blood sugar row", "id", row.ID, "meal_type", row.MealType, "err", err)
			continue
		}
		b := r.buckets[slot]
		if b.ServerID != nil && *b.ServerID > row.ID {
			continue
		}
		r.seedLocked(b, row)
	}
	return nil
}

// LoadRecord makes the record's date active and seeds its slot from
// GET /blood-sugar/{id}; the other slots start empty.
func (r *Reconciler) LoadRecord(ctx context.Context, id int64) (Bucket, error) {
	if id <= 0 {
		return Bucket{}, apperr.Validationf("id", "must be positive, got %d", id)
	}
	rec, err := r.backend.GetBloodSugar(ctx, id)
	if err != nil {
		return Bucket{}, fmt.Errorf("load blood sugar record %d: %w", id, err)
	}
	slot, err := ParseSlot(rec.MealType)
	if err != nil {
		return Bucket{}, fmt.Errorf("load blood sugar record %d: %w", id, err)
	}
	day, err := time.ParseInLocation(dateLayout, rec.Date, r.loc)
	if err != nil {
		return Bucket{}, fmt.Errorf("load blood sugar record %d: parse date %q: %w", id, rec.Date, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked(day)
	b := r.buckets[slot]
	r.seedLocked(b, rec)
	return b.clone(), nil
}

func (r *Reconciler) seedLocked(b *Bucket, row api.BloodSugarRecord) {
	v := row.BloodSugar
	id := row.ID
	b.Value = &v
	b.ServerID = &id
	b.Time = r.parseTime(row.Time)
	b.State = StateSynced
}

func (r *Reconciler) parseTime(hhmm string) time.Time {
	for _, layout := range []string{timeLayout, "15:04:05"} {
		if t, err := time.ParseInLocation(layout, hhmm, r.loc); err == nil {
			return time.Date(r.date.Year(), r.date.Month(), r.date.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.loc)
		}
	}
	return r.date
}

// SetValue changes a bucket locally. Nothing is sent until Submit.
func (r *Reconciler) SetValue(key Slot, value float64, at time.Time) error {
	if !key.Valid() {
		return apperr.Validationf("slot", "unknown slot %q", key)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return apperr.NewValidationError("blood_sugar", "must be a positive number")
	}
	if at.IsZero() {
		at = r.now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.buckets[key]
	b.Value = &value
	b.Time = at.In(r.loc)
	b.State = StateEditing
	return nil
}

// Submit sends a bucket to the server: PUT when it has a server id, POST
// otherwise. A failed submit leaves the bucket's value and server id as they
// were, so it can be retried. Submits for the same slot do not overlap.
func (r *Reconciler) Submit(ctx context.Context, key Slot) error {
	if !key.Valid() {
		return apperr.Validationf("slot", "unknown slot %q", key)
	}

	r.mu.Lock()
	b := r.buckets[key]
	if r.inFlight[key] {
		r.mu.Unlock()
		return ErrSubmitInFlight
	}
	if b.Value == nil {
		r.mu.Unlock()
		return apperr.NewValidationError("blood_sugar", "a value is required before submitting")
	}
	in := api.BloodSugarInput{
		BloodSugar: *b.Value,
		MealType:   key.Label(),
		Date:       r.date.Format(dateLayout),
		Time:       b.Time.In(r.loc).Format(timeLayout),
	}
	var serverID *int64
	if b.ServerID != nil {
		id := *b.ServerID
		serverID = &id
	}
	prevState := b.State
	sent := b.Value
	if serverID != nil {
		b.State = StateUpdatePending
	}
	r.inFlight[key] = true
	gen := r.generation
	r.mu.Unlock()

	var (
		rec api.BloodSugarRecord
		err error
	)
	if serverID != nil {
		rec, err = r.backend.UpdateBloodSugar(ctx, *serverID, in)
	} else {
		rec, err = r.backend.CreateBloodSugar(ctx, in)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug("dropping submit result for replaced day", "slot", key, "date", in.Date)
		return err
	}
	delete(r.inFlight, key)
	// SetValue replaces the value pointer, so a changed pointer means the
	// bucket was edited while the request was out and must stay Editing.
	edited := b.Value != sent
	if err != nil {
		if b.State == StateUpdatePending {
			b.State = prevState
		}
		return logutil.DebugAndWrapErr(r.logger, "submit "+string(key), err, "slot", key, "date", in.Date)
	}
	if serverID == nil {
		id := rec.ID
		b.ServerID = &id
		b.State = StateCreated
		r.logger.Info("blood sugar record created", "slot", key, "id", id)
	} else {
		b.State = StateUpdated
		r.logger.Info("blood sugar record updated", "slot", key, "id", *serverID)
	}
	if edited {
		b.State = StateEditing
	}
	return nil
}

// Bucket returns a copy of one bucket.
func (r *Reconciler) Bucket(key Slot) (Bucket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[key]
	if !ok {
		return Bucket{}, false
	}
	return b.clone(), true
}

// Buckets returns copies of all buckets in slot order.
func (r *Reconciler) Buckets() []Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Bucket, 0, len(Slots))
	for _, s := range Slots {
		out = append(out, r.buckets[s].clone())
	}
	return out
}

func (r *Reconciler) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := Summary{Date: r.date.Format(dateLayout), Values: make(map[Slot]*float64, len(Slots))}
	total := 0.0
	for _, s := range Slots {
		b := r.buckets[s]
		if b.Value == nil {
			sum.Values[s] = nil
			continue
		}
		v := *b.Value
		sum.Values[s] = &v
		if sum.Count == 0 || v < sum.Min {
			sum.Min = v
		}
		if v > sum.Max {
			sum.Max = v
		}
		total += v
		sum.Count++
	}
	if sum.Count > 0 {
		sum.Average = math.Round(total/float64(sum.Count)*10) / 10
	}
	return sum
}
