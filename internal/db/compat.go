package db

import (
	"context"
	"errors"

	"github.com/emailorg/mvmail/internal/models"
)

// Facade exposes the repository under the legacy calling convention: every
// failure collapses to a sentinel value (empty string, nil, empty slice) and
// is visible only in the log. A missing record and an unreachable server
// look the same to a caller. New code should use Repository and its typed
// errors; the facade exists for callers written against the old contract.
type Facade struct {
	repo *Repository
}

// NewFacade wraps repo in the legacy convention.
func NewFacade(repo *Repository) *Facade {
	return &Facade{repo: repo}
}

// AddUser stores a user and returns its ID, empty on failure.
func (f *Facade) AddUser(ctx context.Context, user *models.User) string {
	id, err := f.repo.AddUser(ctx, user)
	if err != nil {
		f.repo.logger.Error().Err(err).Msg("failed to add user")
		return ""
	}
	return id
}

// GetUser returns a user, nil when absent or unreachable.
func (f *Facade) GetUser(ctx context.Context, id string) *models.User {
	user, err := f.repo.GetUser(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			f.repo.logger.Error().Err(err).Str("user_id", id).Msg("failed to get user")
		}
		return nil
	}
	return user
}

// GetUserByUsername returns the first user with the given username, nil when
// absent or unreachable.
func (f *Facade) GetUserByUsername(ctx context.Context, username string) *models.User {
	user, err := f.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			f.repo.logger.Error().Err(err).Str("username", username).Msg("failed to get user by username")
		}
		return nil
	}
	return user
}

// AddEmail stores an email and returns its ID, empty when the email write
// itself failed. A thread linkage failure leaves the ID intact; the
// repository already logged it.
func (f *Facade) AddEmail(ctx context.Context, email *models.Email) string {
	id, err := f.repo.AddEmail(ctx, email)
	if err != nil {
		var linkErr *ThreadLinkError
		if errors.As(err, &linkErr) {
			return linkErr.EmailID
		}
		f.repo.logger.Error().Err(err).Msg("failed to add email")
		return ""
	}
	return id
}

// GetEmail returns an email, nil when absent or unreachable.
func (f *Facade) GetEmail(ctx context.Context, id string) *models.Email {
	email, err := f.repo.GetEmail(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrEmailNotFound) {
			f.repo.logger.Error().Err(err).Str("email_id", id).Msg("failed to get email")
		}
		return nil
	}
	return email
}

// SearchEmails returns the matching emails, empty on any failure.
func (f *Facade) SearchEmails(ctx context.Context, filter EmailFilter) []*models.Email {
	emails, err := f.repo.SearchEmails(ctx, filter)
	if err != nil {
		f.repo.logger.Error().Err(err).Msg("failed to search emails")
		return []*models.Email{}
	}
	return emails
}

// AddThread stores a thread and returns its ID, empty on failure.
func (f *Facade) AddThread(ctx context.Context, thread *models.Thread) string {
	id, err := f.repo.AddThread(ctx, thread)
	if err != nil {
		f.repo.logger.Error().Err(err).Msg("failed to add thread")
		return ""
	}
	return id
}

// GetThread returns a thread, nil when absent or unreachable.
func (f *Facade) GetThread(ctx context.Context, id string) *models.Thread {
	thread, err := f.repo.GetThread(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrThreadNotFound) {
			f.repo.logger.Error().Err(err).Str("thread_id", id).Msg("failed to get thread")
		}
		return nil
	}
	return thread
}

// SearchThreads returns the matching threads, empty on any failure.
func (f *Facade) SearchThreads(ctx context.Context, filter ThreadFilter) []*models.Thread {
	threads, err := f.repo.SearchThreads(ctx, filter)
	if err != nil {
		f.repo.logger.Error().Err(err).Msg("failed to search threads")
		return []*models.Thread{}
	}
	return threads
}

// AddAttachment stores attachment metadata and returns its ID, empty on
// failure.
func (f *Facade) AddAttachment(ctx context.Context, att *models.Attachment) string {
	id, err := f.repo.AddAttachment(ctx, att)
	if err != nil {
		f.repo.logger.Error().Err(err).Msg("failed to add attachment")
		return ""
	}
	return id
}

// GetAttachment returns attachment metadata, nil when absent or unreachable.
func (f *Facade) GetAttachment(ctx context.Context, id string) *models.Attachment {
	att, err := f.repo.GetAttachment(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrAttachmentNotFound) {
			f.repo.logger.Error().Err(err).Str("attachment_id", id).Msg("failed to get attachment")
		}
		return nil
	}
	return att
}

// GetEmailAttachments returns the attachment records of one email, empty on
// any failure, including the email itself being absent.
func (f *Facade) GetEmailAttachments(ctx context.Context, emailID string) []*models.Attachment {
	attachments, err := f.repo.GetEmailAttachments(ctx, emailID)
	if err != nil {
		if !errors.Is(err, ErrEmailNotFound) {
			f.repo.logger.Error().Err(err).Str("email_id", emailID).Msg("failed to get email attachments")
		}
		return []*models.Attachment{}
	}
	return attachments
}
