// Package ingest converts raw MIME messages into archive entities and stores
// them through the repository.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/k3a/html2text"

	"github.com/emailorg/mvmail/internal/db"
	"github.com/emailorg/mvmail/internal/models"
)

// Parsed holds the entities extracted from one raw message, ready to store.
type Parsed struct {
	Email       models.Email
	Body        models.Body
	Attachments []models.Attachment
}

// ParseMessage extracts archive entities from a raw MIME message. The body
// prefers the plain-text part and falls back to a text rendering of the HTML
// part; attachment content is hashed and measured but not kept.
func ParseMessage(raw []byte) (*Parsed, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	parsed := &Parsed{
		Email: models.Email{
			FromAddress:  firstAddress(envelope, "From"),
			ToAddresses:  addressList(envelope, "To"),
			CCAddresses:  addressList(envelope, "Cc"),
			BCCAddresses: addressList(envelope, "Bcc"),
			Subject:      envelope.GetHeader("Subject"),
			DateSent:     headerDate(envelope),
			MessageID:    envelope.GetHeader("Message-Id"),
			InReplyTo:    envelope.GetHeader("In-Reply-To"),
			References:   envelope.GetHeader("References"),
		},
	}

	// An HTML-only message stores the html2text rendering of its HTML part;
	// enmime's own down-conversion is not used.
	content := envelope.Text
	if envelope.HTML != "" && !hasTextPart(envelope) {
		content = strings.TrimSpace(html2text.HTML2Text(envelope.HTML))
	}
	if content != "" {
		parsed.Body = models.Body{
			Content:   content,
			WordCount: len(strings.Fields(content)),
			Hash:      hashBytes([]byte(content)),
		}
	}

	for _, part := range envelope.Attachments {
		parsed.Attachments = append(parsed.Attachments, models.Attachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        int64(len(part.Content)),
			Hash:        hashBytes(part.Content),
		})
	}

	return parsed, nil
}

// Store persists the parsed entities: body first, then attachments, then the
// email carrying their IDs. The email ID is returned even when the thread
// linkage fails; callers that care inspect the error with errors.As against
// *db.ThreadLinkError.
func (p *Parsed) Store(ctx context.Context, repo *db.Repository, accountID, threadID string) (string, error) {
	if p.Email.ID == "" {
		p.Email.ID = uuid.NewString()
	}
	p.Email.AccountID = accountID
	p.Email.ThreadID = threadID

	if p.Body.Content != "" {
		bodyID, err := repo.AddBody(ctx, &p.Body)
		if err != nil {
			return "", fmt.Errorf("failed to store body: %w", err)
		}
		p.Email.BodyID = bodyID
	}

	now := time.Now().UTC()
	for i := range p.Attachments {
		att := &p.Attachments[i]
		att.EmailIDs = []string{p.Email.ID}
		if att.DateAdded.IsZero() {
			att.DateAdded = now
		}
		attID, err := repo.AddAttachment(ctx, att)
		if err != nil {
			return "", fmt.Errorf("failed to store attachment %s: %w", att.Filename, err)
		}
		p.Email.AttachmentIDs = append(p.Email.AttachmentIDs, attID)
	}

	return repo.AddEmail(ctx, &p.Email)
}

func hasTextPart(envelope *enmime.Envelope) bool {
	if envelope.Root == nil {
		return false
	}
	match := envelope.Root.BreadthMatchFirst(func(part *enmime.Part) bool {
		return part.ContentType == "text/plain"
	})
	return match != nil
}

func firstAddress(envelope *enmime.Envelope, key string) string {
	addrs := addressList(envelope, key)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

// addressList returns the decoded addresses of a header. Lists that do not
// parse as RFC 5322 are split on commas and kept verbatim rather than lost.
func addressList(envelope *enmime.Envelope, key string) []string {
	value := envelope.GetHeader(key)
	if value == "" {
		return nil
	}

	addrs, err := mail.ParseAddressList(value)
	if err != nil {
		var result []string
		for _, part := range strings.Split(value, ",") {
			if addr := strings.TrimSpace(part); addr != "" {
				result = append(result, addr)
			}
		}
		return result
	}

	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		result = append(result, formatAddress(addr))
	}
	return result
}

// formatAddress keeps the display name when one is present.
func formatAddress(addr *mail.Address) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return addr.Address
}

// headerDate parses the Date header. Messages without a usable date get the
// zero time; the record conversions store that as an absent value.
func headerDate(envelope *enmime.Envelope) time.Time {
	value := envelope.GetHeader("Date")
	if value == "" {
		return time.Time{}
	}
	date, err := mail.ParseDate(value)
	if err != nil {
		return time.Time{}
	}
	return date.UTC()
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
