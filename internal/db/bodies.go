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

// BODIES dictionary positions.
const (
	bodyContent       = 2
	bodyDisclaimerIDs = 3
	bodyLanguage      = 4
	bodyWordCount     = 5
	bodyHash          = 6
)

// AddBody stores a message body, assigning a generated ID when the caller
// left it empty, and returns the ID.
func (r *Repository) AddBody(ctx context.Context, body *models.Body) (string, error) {
	if body.ID == "" {
		body.ID = uuid.NewString()
	}
	if err := r.conn.WriteRecord(ctx, FileBodies, body.ID, record.Encode(marshalBody(body))); err != nil {
		return "", fmt.Errorf("failed to write body: %w", err)
	}
	return body.ID, nil
}

// GetBody retrieves a message body by ID, returning ErrBodyNotFound when
// absent.
func (r *Repository) GetBody(ctx context.Context, id string) (*models.Body, error) {
	data, err := r.conn.ReadRecord(ctx, FileBodies, id)
	if err != nil {
		if errors.Is(err, qm.ErrNotFound) {
			return nil, ErrBodyNotFound
		}
		return nil, fmt.Errorf("failed to get body: %w", err)
	}
	return unmarshalBody(record.Decode(data)), nil
}

func marshalBody(b *models.Body) record.Record {
	var rec record.Record
	rec.Set(fieldID, b.ID)
	rec.Set(fieldTag, tagBody)
	rec.Set(bodyContent, b.Content)
	rec.SetList(bodyDisclaimerIDs, b.DisclaimerIDs)
	rec.Set(bodyLanguage, b.Language)
	rec.Set(bodyWordCount, formatInt(b.WordCount))
	rec.Set(bodyHash, b.Hash)
	return rec
}

func unmarshalBody(rec record.Record) *models.Body {
	return &models.Body{
		ID:            rec.Get(fieldID),
		Content:       rec.Get(bodyContent),
		DisclaimerIDs: rec.List(bodyDisclaimerIDs),
		Language:      rec.Get(bodyLanguage),
		WordCount:     parseInt(rec.Get(bodyWordCount)),
		Hash:          rec.Get(bodyHash),
	}
}
