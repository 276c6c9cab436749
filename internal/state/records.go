package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/store"
)

// RecordStore persists daily records.
type RecordStore interface {
	LoadRecords(ctx context.Context) map[string]model.DailyRecord
	SaveRecords(ctx context.Context, records map[string]model.DailyRecord) error
}

// RecordChange describes one mutation of the record set.
type RecordChange struct {
	Record  model.DailyRecord
	Deleted bool
}

// RecordInput is a day of study as entered by the user.
type RecordInput struct {
	TrackID       model.TrackID
	Date          string
	FocusMinutes  int
	Topics        bool
	Questions     bool
	QuestionCount int
	Breakdown     map[string]int
}

// Record input errors.
var (
	ErrInvalidDate    = errors.New("geçersiz tarih")
	ErrInvalidTrack   = errors.New("geçersiz alan")
	ErrNegativeFocus  = errors.New("çalışma süresi negatif olamaz")
	ErrUnknownSubject = errors.New("bu alanda olmayan ders")
)

// NewRecord validates in and builds the record to store.
func NewRecord(in RecordInput) (model.DailyRecord, error) {
	if !in.TrackID.Valid() {
		return model.DailyRecord{}, ErrInvalidTrack
	}
	if !model.IsDate(in.Date) {
		return model.DailyRecord{}, ErrInvalidDate
	}
	if in.FocusMinutes < 0 {
		return model.DailyRecord{}, ErrNegativeFocus
	}
	rec := model.DailyRecord{
		Date:         in.Date,
		TrackID:      in.TrackID,
		FocusMinutes: in.FocusMinutes,
		ActivityType: model.ActivityFromToggles(in.Topics, in.Questions),
	}
	breakdown := map[string]int{}
	total := 0
	for key, n := range in.Breakdown {
		if !in.TrackID.HasSubject(key) {
			return model.DailyRecord{}, fmt.Errorf("%w: %s", ErrUnknownSubject, key)
		}
		if n > 0 {
			breakdown[key] = n
			total += n
		}
	}
	switch {
	case len(breakdown) > 0:
		rec.SubjectBreakdown = breakdown
		rec.QuestionCount = &total
	case in.QuestionCount > 0:
		n := in.QuestionCount
		rec.QuestionCount = &n
	}
	return rec, nil
}

// Records owns the daily record set.
type Records struct {
	mu      sync.RWMutex
	store   RecordStore
	log     logx.Logger
	items   map[string]model.DailyRecord
	flusher *Flusher
	hooks   []func(RecordChange)
}

// LoadRecords reads the persisted records into a new container.
func LoadRecords(ctx context.Context, st RecordStore, log logx.Logger) *Records {
	if log == nil {
		log = logx.Discard{}
	}
	r := &Records{store: st, log: log, items: st.LoadRecords(ctx)}
	r.flusher = NewFlusher(RecordsDelay, r.persist)
	return r
}

func (r *Records) persist() {
	snapshot := r.All()
	if err := r.store.SaveRecords(context.Background(), snapshot); err != nil {
		r.log.Errorf("failed to save records: %v", err)
	}
}

// OnChange registers a hook called after every mutation.
func (r *Records) OnChange(fn func(RecordChange)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Records) notify(change RecordChange) {
	r.mu.RLock()
	hooks := append([]func(RecordChange){}, r.hooks...)
	r.mu.RUnlock()
	for _, fn := range hooks {
		fn(change)
	}
}

// Get returns the record of a track and date.
func (r *Records) Get(track model.TrackID, date string) (model.DailyRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[model.RecordKey(track, date)]
	return rec, ok
}

// All returns a copy of every record keyed by record key.
func (r *Records) All() map[string]model.DailyRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.DailyRecord, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

// ByTrack returns the records of a track, newest first.
func (r *Records) ByTrack(track model.TrackID) []model.DailyRecord {
	return store.SortedByTrack(r.All(), track)
}

// Upsert inserts or replaces the record of its track and date.
func (r *Records) Upsert(rec model.DailyRecord) {
	r.mu.Lock()
	r.items[rec.Key()] = rec
	r.mu.Unlock()
	r.flusher.Mark()
	r.notify(RecordChange{Record: rec})
}

// Delete removes the record of a track and date and reports whether one
// existed.
func (r *Records) Delete(track model.TrackID, date string) bool {
	key := model.RecordKey(track, date)
	r.mu.Lock()
	rec, ok := r.items[key]
	delete(r.items, key)
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.flusher.Mark()
	r.notify(RecordChange{Record: rec, Deleted: true})
	return true
}

// FlushState reports the persistence state.
func (r *Records) FlushState() FlushState {
	return r.flusher.State()
}

// Close flushes pending changes.
func (r *Records) Close() {
	r.flusher.Close()
}
