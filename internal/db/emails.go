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

// EMAILS dictionary positions.
const (
	emailAccountID       = 2
	emailFromAddress     = 3
	emailToAddresses     = 4
	emailCCAddresses     = 5
	emailBCCAddresses    = 6
	emailSubject         = 7
	emailDateSent        = 8
	emailDateReceived    = 9
	emailBodyID          = 10
	emailHTMLID          = 11
	emailThreadID        = 12
	emailAttachmentIDs   = 13
	emailCategoryIDs     = 14
	emailDisclaimerIDs   = 15
	emailPriority        = 16
	emailIsRead          = 17
	emailIsFlagged       = 18
	emailIsDeleted       = 19
	emailIsSpam          = 20
	emailSpamScore       = 21
	emailIsConfidential  = 22
	emailRetentionPolicy = 23
	emailMessageID       = 24
	emailInReplyTo       = 25
	emailReferences      = 26
)

// ThreadLinkError reports that an email was stored but the membership update
// on its thread failed. The email write is authoritative and is not rolled
// back; the caller decides whether the linkage is worth retrying.
type ThreadLinkError struct {
	EmailID  string
	ThreadID string
	Err      error
}

func (e *ThreadLinkError) Error() string {
	return fmt.Sprintf("email %s stored but thread %s not updated: %v", e.EmailID, e.ThreadID, e.Err)
}

func (e *ThreadLinkError) Unwrap() error { return e.Err }

// AddEmail stores an email, assigning a generated ID when the caller left it
// empty, and returns the ID. An email carrying a thread ID is also appended
// to that thread's member list, widening the thread's date range to cover
// the email's sent date. The linkage is best effort: when it fails the email
// stays written and the returned error is a *ThreadLinkError carrying the
// stored ID.
func (r *Repository) AddEmail(ctx context.Context, email *models.Email) (string, error) {
	if email.ID == "" {
		email.ID = uuid.NewString()
	}

	if err := r.conn.WriteRecord(ctx, FileEmails, email.ID, record.Encode(marshalEmail(email))); err != nil {
		return "", fmt.Errorf("failed to write email: %w", err)
	}

	if email.ThreadID != "" {
		if err := r.linkEmailToThread(ctx, email); err != nil {
			r.logger.Warn().Err(err).
				Str("email_id", email.ID).
				Str("thread_id", email.ThreadID).
				Msg("email stored but thread linkage failed")
			return email.ID, &ThreadLinkError{EmailID: email.ID, ThreadID: email.ThreadID, Err: err}
		}
	}
	return email.ID, nil
}

// linkEmailToThread appends the email to its thread's member list and widens
// the thread's date range. Membership drives the update: re-adding an email
// already on the list changes nothing, dates included. A thread ID that
// resolves to no record is skipped, not an error; the thread may simply not
// have been created yet.
func (r *Repository) linkEmailToThread(ctx context.Context, email *models.Email) error {
	thread, err := r.GetThread(ctx, email.ThreadID)
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			r.logger.Debug().
				Str("email_id", email.ID).
				Str("thread_id", email.ThreadID).
				Msg("thread does not exist, skipping linkage")
			return nil
		}
		return err
	}

	for _, id := range thread.EmailIDs {
		if id == email.ID {
			return nil
		}
	}
	thread.EmailIDs = append(thread.EmailIDs, email.ID)

	if !email.DateSent.IsZero() {
		if thread.DateStarted.IsZero() || email.DateSent.Before(thread.DateStarted) {
			thread.DateStarted = email.DateSent
		}
		if thread.LastDate.IsZero() || email.DateSent.After(thread.LastDate) {
			thread.LastDate = email.DateSent
		}
	}

	if err := r.conn.WriteRecord(ctx, FileThreads, thread.ID, record.Encode(marshalThread(thread))); err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}
	return nil
}

// GetEmail retrieves an email by ID, returning ErrEmailNotFound when absent.
func (r *Repository) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	data, err := r.conn.ReadRecord(ctx, FileEmails, id)
	if err != nil {
		if errors.Is(err, qm.ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return unmarshalEmail(record.Decode(data)), nil
}

// SearchEmails returns the emails matching the filter. No matches is an
// empty slice, not an error. IDs the select reports but that no longer read
// back are skipped.
func (r *Repository) SearchEmails(ctx context.Context, filter EmailFilter) ([]*models.Email, error) {
	ids, err := r.emailIDs(ctx, filter)
	if err != nil {
		return nil, err
	}

	emails := make([]*models.Email, 0, len(ids))
	for _, id := range ids {
		email, err := r.GetEmail(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEmailNotFound) {
				continue
			}
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// emailIDs resolves the filter to matching record IDs, through the
// server-side query phantom when configured and a direct select otherwise.
// The phantom takes the bare clauses and builds the select statement itself.
func (r *Repository) emailIDs(ctx context.Context, filter EmailFilter) ([]string, error) {
	crit := filter.criteria()
	if !r.usePhantom {
		ids, err := r.conn.SelectIDs(ctx, FileEmails, BuildSelect(FileEmails, crit))
		if err != nil {
			return nil, fmt.Errorf("failed to select emails: %w", err)
		}
		return ids, nil
	}

	out, err := r.conn.Execute(ctx, fmt.Sprintf("PHANTOM EMAIL.QUERY '%s'", crit.Clauses()))
	if err != nil {
		return nil, fmt.Errorf("failed to run query phantom: %w", err)
	}
	return splitIDs(out), nil
}

// GetEmailAttachments resolves the attachment records of one email.
// Attachment IDs that no longer resolve are skipped, with a warning.
func (r *Repository) GetEmailAttachments(ctx context.Context, emailID string) ([]*models.Attachment, error) {
	email, err := r.GetEmail(ctx, emailID)
	if err != nil {
		return nil, err
	}

	attachments := make([]*models.Attachment, 0, len(email.AttachmentIDs))
	for _, id := range email.AttachmentIDs {
		att, err := r.GetAttachment(ctx, id)
		if err != nil {
			if errors.Is(err, ErrAttachmentNotFound) {
				r.logger.Warn().
					Str("email_id", emailID).
					Str("attachment_id", id).
					Msg("attachment record missing")
				continue
			}
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func marshalEmail(e *models.Email) record.Record {
	var rec record.Record
	rec.Set(fieldID, e.ID)
	rec.Set(fieldTag, tagEmail)
	rec.Set(emailAccountID, e.AccountID)
	rec.Set(emailFromAddress, e.FromAddress)
	rec.SetList(emailToAddresses, e.ToAddresses)
	rec.SetList(emailCCAddresses, e.CCAddresses)
	rec.SetList(emailBCCAddresses, e.BCCAddresses)
	rec.Set(emailSubject, e.Subject)
	rec.Set(emailDateSent, formatTime(e.DateSent))
	rec.Set(emailDateReceived, formatTime(e.DateReceived))
	rec.Set(emailBodyID, e.BodyID)
	rec.Set(emailHTMLID, e.HTMLID)
	rec.Set(emailThreadID, e.ThreadID)
	rec.SetList(emailAttachmentIDs, e.AttachmentIDs)
	rec.SetList(emailCategoryIDs, e.CategoryIDs)
	rec.SetList(emailDisclaimerIDs, e.DisclaimerIDs)
	rec.Set(emailPriority, formatInt(e.Priority))
	rec.Set(emailIsRead, formatBool(e.IsRead))
	rec.Set(emailIsFlagged, formatBool(e.IsFlagged))
	rec.Set(emailIsDeleted, formatBool(e.IsDeleted))
	rec.Set(emailIsSpam, formatBool(e.IsSpam))
	rec.Set(emailSpamScore, formatFloat(e.SpamScore))
	rec.Set(emailIsConfidential, formatBool(e.IsConfidential))
	rec.Set(emailRetentionPolicy, e.RetentionPolicy)
	rec.Set(emailMessageID, e.MessageID)
	rec.Set(emailInReplyTo, e.InReplyTo)
	rec.Set(emailReferences, e.References)
	return rec
}

func unmarshalEmail(rec record.Record) *models.Email {
	return &models.Email{
		ID:              rec.Get(fieldID),
		AccountID:       rec.Get(emailAccountID),
		FromAddress:     rec.Get(emailFromAddress),
		ToAddresses:     rec.List(emailToAddresses),
		CCAddresses:     rec.List(emailCCAddresses),
		BCCAddresses:    rec.List(emailBCCAddresses),
		Subject:         rec.Get(emailSubject),
		DateSent:        parseTime(rec.Get(emailDateSent)),
		DateReceived:    parseTime(rec.Get(emailDateReceived)),
		BodyID:          rec.Get(emailBodyID),
		HTMLID:          rec.Get(emailHTMLID),
		ThreadID:        rec.Get(emailThreadID),
		AttachmentIDs:   rec.List(emailAttachmentIDs),
		CategoryIDs:     rec.List(emailCategoryIDs),
		DisclaimerIDs:   rec.List(emailDisclaimerIDs),
		Priority:        parseInt(rec.Get(emailPriority)),
		IsRead:          parseBool(rec.Get(emailIsRead)),
		IsFlagged:       parseBool(rec.Get(emailIsFlagged)),
		IsDeleted:       parseBool(rec.Get(emailIsDeleted)),
		IsSpam:          parseBool(rec.Get(emailIsSpam)),
		SpamScore:       parseFloat(rec.Get(emailSpamScore)),
		IsConfidential:  parseBool(rec.Get(emailIsConfidential)),
		RetentionPolicy: rec.Get(emailRetentionPolicy),
		MessageID:       rec.Get(emailMessageID),
		InReplyTo:       rec.Get(emailInReplyTo),
		References:      rec.Get(emailReferences),
	}
}
