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

// ATTACHMENTS dictionary positions.
const (
	attachmentFilename    = 2
	attachmentContentType = 3
	attachmentSize        = 4
	attachmentHash        = 5
	attachmentStoragePath = 6
	attachmentEmailIDs    = 7
	attachmentDateAdded   = 8
)

// AddAttachment stores attachment metadata, assigning a generated ID when
// the caller left it empty, and returns the ID. The content itself lives
// outside the database, at the attachment's storage path.
func (r *Repository) AddAttachment(ctx context.Context, att *models.Attachment) (string, error) {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if err := r.conn.WriteRecord(ctx, FileAttachments, att.ID, record.Encode(marshalAttachment(att))); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return att.ID, nil
}

// GetAttachment retrieves attachment metadata by ID, returning
// ErrAttachmentNotFound when absent.
func (r *Repository) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	data, err := r.conn.ReadRecord(ctx, FileAttachments, id)
	if err != nil {
		if errors.Is(err, qm.ErrNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return unmarshalAttachment(record.Decode(data)), nil
}

func marshalAttachment(a *models.Attachment) record.Record {
	var rec record.Record
	rec.Set(fieldID, a.ID)
	rec.Set(fieldTag, tagAttachment)
	rec.Set(attachmentFilename, a.Filename)
	rec.Set(attachmentContentType, a.ContentType)
	rec.Set(attachmentSize, formatInt64(a.Size))
	rec.Set(attachmentHash, a.Hash)
	rec.Set(attachmentStoragePath, a.StoragePath)
	rec.SetList(attachmentEmailIDs, a.EmailIDs)
	rec.Set(attachmentDateAdded, formatTime(a.DateAdded))
	return rec
}

func unmarshalAttachment(rec record.Record) *models.Attachment {
	return &models.Attachment{
		ID:          rec.Get(fieldID),
		Filename:    rec.Get(attachmentFilename),
		ContentType: rec.Get(attachmentContentType),
		Size:        parseInt64(rec.Get(attachmentSize)),
		Hash:        rec.Get(attachmentHash),
		StoragePath: rec.Get(attachmentStoragePath),
		EmailIDs:    rec.List(attachmentEmailIDs),
		DateAdded:   parseTime(rec.Get(attachmentDateAdded)),
	}
}
