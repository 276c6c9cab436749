package store

import (
	"context"
	"sort"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/normalize"
)

// LoadRecords returns every valid daily record keyed by track and date.
// The first load after an upgrade migrates the legacy date-keyed mapping.
func (s *Store) LoadRecords(ctx context.Context) map[string]model.DailyRecord {
	value, present, missing := s.loadJSON(ctx, KeyRecords)
	if present {
		return s.decodeRecords(KeyRecords, value)
	}
	if !missing {
		return map[string]model.DailyRecord{}
	}
	return s.migrateLegacyRecords(ctx)
}

func (s *Store) migrateLegacyRecords(ctx context.Context) map[string]model.DailyRecord {
	value, present, missing := s.loadJSON(ctx, KeyLegacyRecords)
	if missing {
		return map[string]model.DailyRecord{}
	}
	if !present {
		s.log.Errorf("legacy records under %s are unreadable; keeping them and skipping migration", KeyLegacyRecords)
		return map[string]model.DailyRecord{}
	}
	records := s.decodeRecords(KeyLegacyRecords, value)
	if err := s.SaveRecords(ctx, records); err != nil {
		s.log.Warnf("failed to rewrite migrated records: %v", err)
		return records
	}
	s.log.Infof("migrated %d records from %s", len(records), KeyLegacyRecords)
	return records
}

func (s *Store) decodeRecords(key string, value any) map[string]model.DailyRecord {
	out := map[string]model.DailyRecord{}
	entries, ok := value.(map[string]any)
	if !ok {
		s.log.Warnf("ignoring %s: not an object", key)
		return out
	}
	exact := map[string]bool{}
	for entryKey, raw := range entries {
		rec, err := normalize.NormalizeRecord(raw, entryKey)
		if err != nil {
			s.log.Warnf("dropping record %q: %v", entryKey, err)
			continue
		}
		k := rec.Key()
		isExact := entryKey == k
		if _, dup := out[k]; dup && (exact[k] || !isExact) {
			continue
		}
		out[k] = rec
		exact[k] = isExact
	}
	return out
}

// SaveRecords replaces the persisted record mapping.
func (s *Store) SaveRecords(ctx context.Context, records map[string]model.DailyRecord) error {
	if records == nil {
		records = map[string]model.DailyRecord{}
	}
	return s.saveJSON(ctx, KeyRecords, records)
}

// UpsertRecord inserts or replaces a single record.
func (s *Store) UpsertRecord(ctx context.Context, rec model.DailyRecord) error {
	records := s.LoadRecords(ctx)
	records[rec.Key()] = rec
	return s.SaveRecords(ctx, records)
}

// DeleteRecord removes the record of a track and date.
func (s *Store) DeleteRecord(ctx context.Context, track model.TrackID, date string) error {
	records := s.LoadRecords(ctx)
	key := model.RecordKey(track, date)
	if _, ok := records[key]; !ok {
		return nil
	}
	delete(records, key)
	return s.SaveRecords(ctx, records)
}

// ListByTrack returns the records of a track, newest first.
func (s *Store) ListByTrack(ctx context.Context, track model.TrackID) []model.DailyRecord {
	return SortedByTrack(s.LoadRecords(ctx), track)
}

// SortedByTrack filters records to a track and sorts them newest first.
func SortedByTrack(records map[string]model.DailyRecord, track model.TrackID) []model.DailyRecord {
	out := make([]model.DailyRecord, 0, len(records))
	for _, rec := range records {
		if rec.TrackID == track {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}
