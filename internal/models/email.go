package models

import "time"

// Email is one archived message in the EMAILS file. Zero time values stand
// for dates the record does not carry.
type Email struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	FromAddress     string    `json:"from_address"`
	ToAddresses     []string  `json:"to_addresses"`
	CCAddresses     []string  `json:"cc_addresses"`
	BCCAddresses    []string  `json:"bcc_addresses"`
	Subject         string    `json:"subject"`
	DateSent        time.Time `json:"date_sent"`
	DateReceived    time.Time `json:"date_received"`
	BodyID          string    `json:"body_id"`
	HTMLID          string    `json:"html_id"`
	ThreadID        string    `json:"thread_id"`
	AttachmentIDs   []string  `json:"attachment_ids"`
	CategoryIDs     []string  `json:"category_ids"`
	DisclaimerIDs   []string  `json:"disclaimer_ids"`
	Priority        int       `json:"priority"`
	IsRead          bool      `json:"is_read"`
	IsFlagged       bool      `json:"is_flagged"`
	IsDeleted       bool      `json:"is_deleted"`
	IsSpam          bool      `json:"is_spam"`
	SpamScore       float64   `json:"spam_score"`
	IsConfidential  bool      `json:"is_confidential"`
	RetentionPolicy string    `json:"retention_policy"`
	MessageID       string    `json:"message_id"`
	InReplyTo       string    `json:"in_reply_to"`
	References      string    `json:"references"`
}

// Thread groups related emails in the THREADS file. EmailIDs carries the
// member emails in insertion order; DateStarted and LastDate span the send
// dates of the members.
type Thread struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	EmailIDs       []string  `json:"email_ids"`
	DateStarted    time.Time `json:"date_started"`
	LastDate       time.Time `json:"last_date"`
	ParticipantIDs []string  `json:"participant_ids"`
	CategoryIDs    []string  `json:"category_ids"`
	Priority       int       `json:"priority"`
	IsComplete     bool      `json:"is_complete"`
}

// Attachment describes stored attachment metadata in the ATTACHMENTS file.
// The content itself lives at StoragePath; EmailIDs lists every email the
// attachment appears on.
type Attachment struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	StoragePath string    `json:"storage_path"`
	EmailIDs    []string  `json:"email_ids"`
	DateAdded   time.Time `json:"date_added"`
}

// Body holds a plain-text message body in the BODIES file, shared between
// emails via BodyID.
type Body struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	DisclaimerIDs []string `json:"disclaimer_ids"`
	Language      string   `json:"language"`
	WordCount     int      `json:"word_count"`
	Hash          string   `json:"hash"`
}
