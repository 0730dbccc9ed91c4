// Package db is the entity repository of the archive. It marshals users,
// emails, threads, attachments and bodies to positional multi-value records,
// assigns identifiers, keeps thread membership and date ranges in step with
// the emails added to them, and translates search filters into select
// statements.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emailorg/mvmail/internal/config"
	"github.com/emailorg/mvmail/internal/crypto"
	"github.com/emailorg/mvmail/internal/qm"
	"github.com/emailorg/mvmail/internal/record"
)

// Entity files of the account. The provisioning tool creates these along
// with their dictionaries.
const (
	FileUsers       = "USERS"
	FileEmails      = "EMAILS"
	FileThreads     = "THREADS"
	FileAttachments = "ATTACHMENTS"
	FileBodies      = "BODIES"
)

// Record positions common to every entity file.
const (
	fieldID  = 0
	fieldTag = 1
)

// Type tags stored in the tag field of every entity record.
const (
	tagUser       = "USER"
	tagEmail      = "EMAIL"
	tagThread     = "THREAD"
	tagAttachment = "ATTACHMENT"
	tagBody       = "BODY"
)

// ErrUserNotFound is returned when a user cannot be found.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailNotFound is returned when an email cannot be found.
var ErrEmailNotFound = errors.New("email not found")

// ErrThreadNotFound is returned when a thread cannot be found.
var ErrThreadNotFound = errors.New("thread not found")

// ErrAttachmentNotFound is returned when an attachment cannot be found.
var ErrAttachmentNotFound = errors.New("attachment not found")

// ErrBodyNotFound is returned when an email body cannot be found.
var ErrBodyNotFound = errors.New("email body not found")

// Repository stores and retrieves the archive's entities over a database
// transport. It owns no connection state of its own; pass a *qm.Manager for
// lazy connection handling. An encryptor, when present, protects stored user
// passwords.
type Repository struct {
	conn       qm.Transport
	encryptor  *crypto.Encryptor
	usePhantom bool
	logger     zerolog.Logger
}

// NewRepository creates a repository over conn. A nil encryptor stores user
// passwords as given.
func NewRepository(conn qm.Transport, cfg *config.Config, encryptor *crypto.Encryptor, logger zerolog.Logger) *Repository {
	return &Repository{
		conn:       conn,
		encryptor:  encryptor,
		usePhantom: cfg.UsePhantom,
		logger:     logger,
	}
}

// ReadRecord fetches a raw record from any file of the account. The sibling
// files without typed accessors (CATEGORIES, RULES, DOMAINS, CONTACTS,
// DISCLAIMERS, KEYWORDS, HTML_OBJECTS) are reached this way.
func (r *Repository) ReadRecord(ctx context.Context, file, id string) (record.Record, error) {
	data, err := r.conn.ReadRecord(ctx, file, id)
	if err != nil {
		if errors.Is(err, qm.ErrNotFound) {
			return record.Record{}, err
		}
		return record.Record{}, fmt.Errorf("failed to read %s record: %w", file, err)
	}
	return record.Decode(data), nil
}

// WriteRecord stores a raw record in any file of the account, creating or
// replacing it.
func (r *Repository) WriteRecord(ctx context.Context, file, id string, rec record.Record) error {
	if err := r.conn.WriteRecord(ctx, file, id, record.Encode(rec)); err != nil {
		return fmt.Errorf("failed to write %s record: %w", file, err)
	}
	return nil
}

// DeleteRecord removes a record from any file of the account.
func (r *Repository) DeleteRecord(ctx context.Context, file, id string) error {
	if err := r.conn.DeleteRecord(ctx, file, id); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", file, err)
	}
	return nil
}

// splitIDs parses the newline-delimited identifier list a select or query
// phantom emits. Blank lines and surrounding whitespace are dropped; no
// matches is an empty slice.
func splitIDs(out string) []string {
	ids := make([]string, 0)
	for _, line := range strings.Split(out, "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
