package db

import (
	"fmt"
	"strings"
	"time"
)

// Criteria accumulates comparison clauses for a select statement, rendered in
// insertion order. Values are interpolated without escaping: the query
// language has no parameter mechanism, and callers are trusted not to pass
// quote or mark characters.
type Criteria struct {
	clauses []string
}

// Equal adds an exact-match clause on field.
func (c *Criteria) Equal(field, value string) *Criteria {
	c.clauses = append(c.clauses, fmt.Sprintf("%s = '%s'", field, value))
	return c
}

// In adds a membership clause on field over values.
func (c *Criteria) In(field string, values []string) *Criteria {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	c.clauses = append(c.clauses, fmt.Sprintf("%s IN (%s)", field, strings.Join(quoted, ",")))
	return c
}

// Contains adds a substring clause on field.
func (c *Criteria) Contains(field, value string) *Criteria {
	c.clauses = append(c.clauses, fmt.Sprintf("%s LIKE '%%%s%%'", field, value))
	return c
}

// OnOrAfter adds a lower date bound on field. Dates are compared lexically by
// the server, which orders RFC 3339 strings chronologically.
func (c *Criteria) OnOrAfter(field string, t time.Time) *Criteria {
	c.clauses = append(c.clauses, fmt.Sprintf("%s >= '%s'", field, formatTime(t)))
	return c
}

// OnOrBefore adds an upper date bound on field.
func (c *Criteria) OnOrBefore(field string, t time.Time) *Criteria {
	c.clauses = append(c.clauses, fmt.Sprintf("%s <= '%s'", field, formatTime(t)))
	return c
}

// Clauses renders the accumulated clauses joined by AND, without the select
// wrapper. The query phantom takes this bare form and prepends the select
// statement itself.
func (c *Criteria) Clauses() string {
	return strings.Join(c.clauses, " AND ")
}

// BuildSelect renders the full select statement for file, bare `SELECT
// <FILE>` when no clauses were added.
func BuildSelect(file string, c *Criteria) string {
	if c == nil || len(c.clauses) == 0 {
		return "SELECT " + file
	}
	return fmt.Sprintf("SELECT %s WITH %s", file, c.Clauses())
}

// EmailFilter narrows an email search. Zero-valued fields are not matched
// on; clauses render in struct order. Substring fields (addresses, subject)
// match anywhere in the value.
type EmailFilter struct {
	AccountIDs  []string
	ThreadID    string
	FromAddress string
	ToAddress   string
	Subject     string
	StartDate   time.Time
	EndDate     time.Time
}

func (f EmailFilter) criteria() *Criteria {
	c := &Criteria{}
	if len(f.AccountIDs) > 0 {
		c.In("ACCOUNT_ID", f.AccountIDs)
	}
	if f.ThreadID != "" {
		c.Equal("THREAD_ID", f.ThreadID)
	}
	if f.FromAddress != "" {
		c.Contains("FROM_ADDRESS", f.FromAddress)
	}
	if f.ToAddress != "" {
		c.Contains("TO_ADDRESSES", f.ToAddress)
	}
	if f.Subject != "" {
		c.Contains("SUBJECT", f.Subject)
	}
	if !f.StartDate.IsZero() {
		c.OnOrAfter("DATE_SENT", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		c.OnOrBefore("DATE_SENT", f.EndDate)
	}
	return c
}

// ThreadFilter narrows a thread search. The date bounds cover the thread's
// whole range: StartDate against when it began, EndDate against its last
// activity.
type ThreadFilter struct {
	Subject   string
	StartDate time.Time
	EndDate   time.Time
}

func (f ThreadFilter) criteria() *Criteria {
	c := &Criteria{}
	if f.Subject != "" {
		c.Contains("SUBJECT", f.Subject)
	}
	if !f.StartDate.IsZero() {
		c.OnOrAfter("DATE_STARTED", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		c.OnOrBefore("LAST_DATE", f.EndDate)
	}
	return c
}
