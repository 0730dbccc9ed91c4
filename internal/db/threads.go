package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/emailorg/mvmail/internal/models"
	"github.com/emailorg/mvmail/internal/qm"
	"github.com/emailorg/mvmail/internal/record"
)

// THREADS dictionary positions.
const (
	threadSubject        = 2
	threadEmailIDs       = 3
	threadDateStarted    = 4
	threadLastDate       = 5
	threadParticipantIDs = 6
	threadCategoryIDs    = 7
	threadPriority       = 8
	threadIsComplete     = 9
)

// AddThread stores a thread, assigning a generated ID when the caller left
// it empty, and returns the ID.
func (r *Repository) AddThread(ctx context.Context, thread *models.Thread) (string, error) {
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	if err := r.conn.WriteRecord(ctx, FileThreads, thread.ID, record.Encode(marshalThread(thread))); err != nil {
		return "", fmt.Errorf("failed to write thread: %w", err)
	}
	return thread.ID, nil
}

// GetThread retrieves a thread by ID, returning ErrThreadNotFound when
// absent.
func (r *Repository) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	data, err := r.conn.ReadRecord(ctx, FileThreads, id)
	if err != nil {
		if errors.Is(err, qm.ErrNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return unmarshalThread(record.Decode(data)), nil
}

// SearchThreads returns the threads matching the filter. No matches is an
// empty slice, not an error. IDs the select reports but that no longer read
// back are skipped.
func (r *Repository) SearchThreads(ctx context.Context, filter ThreadFilter) ([]*models.Thread, error) {
	ids, err := r.conn.SelectIDs(ctx, FileThreads, BuildSelect(FileThreads, filter.criteria()))
	if err != nil {
		return nil, fmt.Errorf("failed to select threads: %w", err)
	}

	threads := make([]*models.Thread, 0, len(ids))
	for _, id := range ids {
		thread, err := r.GetThread(ctx, id)
		if err != nil {
			if errors.Is(err, ErrThreadNotFound) {
				continue
			}
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

func marshalThread(t *models.Thread) record.Record {
	var rec record.Record
	rec.Set(fieldID, t.ID)
	rec.Set(fieldTag, tagThread)
	rec.Set(threadSubject, t.Subject)
	rec.SetList(threadEmailIDs, t.EmailIDs)
	rec.Set(threadDateStarted, formatTime(t.DateStarted))
	rec.Set(threadLastDate, formatTime(t.LastDate))
	rec.SetList(threadParticipantIDs, t.ParticipantIDs)
	rec.SetList(threadCategoryIDs, t.CategoryIDs)
	rec.Set(threadPriority, formatInt(t.Priority))
	rec.Set(threadIsComplete, formatBool(t.IsComplete))
	return rec
}

func unmarshalThread(rec record.Record) *models.Thread {
	return &models.Thread{
		ID:             rec.Get(fieldID),
		Subject:        rec.Get(threadSubject),
		EmailIDs:       rec.List(threadEmailIDs),
		DateStarted:    parseTime(rec.Get(threadDateStarted)),
		LastDate:       parseTime(rec.Get(threadLastDate)),
		ParticipantIDs: rec.List(threadParticipantIDs),
		CategoryIDs:    rec.List(threadCategoryIDs),
		Priority:       parseInt(rec.Get(threadPriority)),
		IsComplete:     parseBool(rec.Get(threadIsComplete)),
	}
}
