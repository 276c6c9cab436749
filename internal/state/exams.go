package state

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ritimapp/ritim/internal/exam"
	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
)

// ErrExamNotFound is returned for unknown or removed exam ids.
var ErrExamNotFound = errors.New("deneme bulunamadı")

// ExamStore persists exams.
type ExamStore interface {
	LoadExams(ctx context.Context) map[string]model.ExamRecord
	SaveExams(ctx context.Context, exams map[string]model.ExamRecord) error
}

// Exams owns the exam set. Removed exams stay as tombstones.
type Exams struct {
	mu      sync.RWMutex
	store   ExamStore
	log     logx.Logger
	now     func() time.Time
	items   map[string]model.ExamRecord
	flusher *Flusher
	hooks   []func(model.ExamRecord)
}

// LoadExams reads the persisted exams into a new container.
func LoadExams(ctx context.Context, st ExamStore, log logx.Logger) *Exams {
	if log == nil {
		log = logx.Discard{}
	}
	e := &Exams{store: st, log: log, now: time.Now, items: st.LoadExams(ctx)}
	e.flusher = NewFlusher(ExamsDelay, e.persist)
	return e
}

func (e *Exams) persist() {
	if err := e.store.SaveExams(context.Background(), e.All()); err != nil {
		e.log.Errorf("failed to save exams: %v", err)
	}
}

// OnChange registers a hook called with every added, updated or removed
// exam.
func (e *Exams) OnChange(fn func(model.ExamRecord)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

func (e *Exams) changed(x model.ExamRecord) {
	e.flusher.Mark()
	e.mu.RLock()
	hooks := append([]func(model.ExamRecord){}, e.hooks...)
	e.mu.RUnlock()
	for _, fn := range hooks {
		fn(x)
	}
}

// All returns a copy of every exam, tombstones included.
func (e *Exams) All() map[string]model.ExamRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]model.ExamRecord, len(e.items))
	for k, v := range e.items {
		out[k] = v
	}
	return out
}

// Get returns a live exam.
func (e *Exams) Get(id string) (model.ExamRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	x, ok := e.items[id]
	if !ok || x.IsDeleted {
		return model.ExamRecord{}, false
	}
	return x, true
}

// List returns the live exams of a track, newest first. An empty track
// lists every track.
func (e *Exams) List(track model.TrackID) []model.ExamRecord {
	e.mu.RLock()
	out := make([]model.ExamRecord, 0, len(e.items))
	for _, x := range e.items {
		if x.IsDeleted || (track != "" && x.TrackID != track) {
			continue
		}
		out = append(out, x)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAtMs > out[j].CreatedAtMs
	})
	return out
}

// DisplayNames names every live exam.
func (e *Exams) DisplayNames() map[string]string {
	return exam.DisplayNames(e.List(""))
}

// Add stores a new exam.
func (e *Exams) Add(in exam.Input) (model.ExamRecord, error) {
	x, err := exam.Build(in, e.now())
	if err != nil {
		return model.ExamRecord{}, err
	}
	e.mu.Lock()
	e.items[x.ID] = x
	e.mu.Unlock()
	e.changed(x)
	return x, nil
}

// Update replaces the fields of a live exam.
func (e *Exams) Update(id string, in exam.Input) (model.ExamRecord, error) {
	e.mu.Lock()
	x, ok := e.items[id]
	if !ok || x.IsDeleted {
		e.mu.Unlock()
		return model.ExamRecord{}, ErrExamNotFound
	}
	if err := exam.Apply(&x, in, e.now()); err != nil {
		e.mu.Unlock()
		return model.ExamRecord{}, err
	}
	e.items[id] = x
	e.mu.Unlock()
	e.changed(x)
	return x, nil
}

// Remove tombstones a live exam.
func (e *Exams) Remove(id string) (model.ExamRecord, error) {
	e.mu.Lock()
	x, ok := e.items[id]
	if !ok || x.IsDeleted {
		e.mu.Unlock()
		return model.ExamRecord{}, ErrExamNotFound
	}
	exam.Tombstone(&x, e.now())
	e.items[id] = x
	e.mu.Unlock()
	e.changed(x)
	return x, nil
}

// FlushState reports the persistence state.
func (e *Exams) FlushState() FlushState {
	return e.flusher.State()
}

// Close flushes pending changes.
func (e *Exams) Close() {
	e.flusher.Close()
}
