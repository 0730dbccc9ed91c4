// Package testutil provides in-process fakes for the database server: a TCP
// server speaking the socket protocol and an HTTP server speaking the web
// service bridge, both backed by the same in-memory record store so the two
// transports can be exercised against identical data.
package testutil

import (
	"sort"
	"strings"
	"sync"

	"github.com/emailorg/mvmail/internal/record"
)

// fieldPositions mirrors the account dictionaries the query evaluator needs:
// attribute name to record position, per file.
var fieldPositions = map[string]map[string]int{
	"USERS": {
		"USERNAME": 2,
		"EMAIL":    4,
	},
	"EMAILS": {
		"ACCOUNT_ID":   2,
		"FROM_ADDRESS": 3,
		"TO_ADDRESSES": 4,
		"SUBJECT":      7,
		"DATE_SENT":    8,
		"THREAD_ID":    12,
	},
	"THREADS": {
		"SUBJECT":      2,
		"EMAIL_IDS":    3,
		"DATE_STARTED": 4,
		"LAST_DATE":    5,
	},
	"ATTACHMENTS": {
		"FILENAME":  2,
		"EMAIL_IDS": 7,
	},
}

// Store is the in-memory backing store shared by the protocol fakes.
type Store struct {
	mu    sync.Mutex
	files map[string]map[string]string

	// FailWrite, when set, makes matching writes fail.
	FailWrite func(file, id string) bool
	// ExecuteFunc, when set, intercepts execute commands before the
	// built-in handling.
	ExecuteFunc func(command string) (string, bool)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string]map[string]string)}
}

// Put seeds a record without going through a transport.
func (s *Store) Put(file, id, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(file, id, data)
}

func (s *Store) put(file, id, data string) {
	if s.files[file] == nil {
		s.files[file] = make(map[string]string)
	}
	s.files[file][id] = data
}

// Read returns the stored record and whether it exists.
func (s *Store) Read(file, id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[file][id]
	return data, ok
}

// Write stores a record, honoring the FailWrite hook.
func (s *Store) Write(file, id, data string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrite != nil && s.FailWrite(file, id) {
		return false
	}
	s.put(file, id, data)
	return true
}

// Delete removes a record. Deleting an absent record succeeds, matching the
// server's idempotent delete.
func (s *Store) Delete(file, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files[file], id)
	return true
}

// Count returns the number of records in a file.
func (s *Store) Count(file string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files[file])
}

// Select evaluates a select statement against a file and returns matching
// IDs in sorted order. The statement is the full "SELECT <FILE> [WITH
// <clauses>]" form the client sends; an empty statement or one without WITH
// selects the whole file.
func (s *Store) Select(file, query string) []string {
	clauses := ""
	if idx := strings.Index(query, " WITH "); idx >= 0 {
		clauses = query[idx+len(" WITH "):]
	}
	return s.eval(file, clauses)
}

// EvalClauses evaluates bare criteria clauses, the form the query phantom
// receives.
func (s *Store) EvalClauses(file, clauses string) []string {
	return s.eval(file, clauses)
}

func (s *Store) eval(file, clauses string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := fieldPositions[file]
	ids := make([]string, 0)
	for id, data := range s.files[file] {
		if clauses == "" || matchAll(record.Decode(data), positions, clauses) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// matchAll splits the clause list on AND. Values containing " AND " would be
// split too; the tests stay away from such values.
func matchAll(rec record.Record, positions map[string]int, clauses string) bool {
	for _, clause := range strings.Split(clauses, " AND ") {
		if !matchClause(rec, positions, strings.TrimSpace(clause)) {
			return false
		}
	}
	return true
}

func matchClause(rec record.Record, positions map[string]int, clause string) bool {
	parts := strings.SplitN(clause, " ", 3)
	if len(parts) != 3 {
		return false
	}
	name, op, rest := parts[0], parts[1], parts[2]
	pos, ok := positions[name]
	if !ok {
		return false
	}

	switch op {
	case "=":
		return rec.Get(pos) == unquote(rest)
	case "IN":
		set := strings.Trim(rest, "()")
		for _, v := range strings.Split(set, ",") {
			if rec.Get(pos) == unquote(v) {
				return true
			}
		}
		return false
	case "LIKE":
		needle := strings.Trim(unquote(rest), "%")
		for _, v := range rec.List(pos) {
			if strings.Contains(v, needle) {
				return true
			}
		}
		return false
	case ">=":
		return rec.Get(pos) >= unquote(rest)
	case "<=":
		return rec.Get(pos) != "" && rec.Get(pos) <= unquote(rest)
	default:
		return false
	}
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), "'")
}

// Execute answers the commands the repository and provisioning tool issue.
// The ExecuteFunc hook wins when it claims the command; PHANTOM EMAIL.QUERY
// and SELECT statements are evaluated against the store; everything else
// (file and dictionary creation, program compiles) is acknowledged with OK.
func (s *Store) Execute(command string) string {
	if s.ExecuteFunc != nil {
		if out, ok := s.ExecuteFunc(command); ok {
			return out
		}
	}

	if clauses, ok := phantomClauses(command); ok {
		ids := s.EvalClauses("EMAILS", clauses)
		return strings.Join(ids, "\n")
	}

	if strings.HasPrefix(command, "SELECT ") {
		rest := strings.TrimPrefix(command, "SELECT ")
		file := rest
		if idx := strings.Index(rest, " "); idx >= 0 {
			file = rest[:idx]
		}
		ids := s.Select(file, command)
		return strings.Join(ids, "\n")
	}

	return "OK"
}

// phantomClauses extracts the quoted criteria from a
// "PHANTOM EMAIL.QUERY '<clauses>'" command.
func phantomClauses(command string) (string, bool) {
	const prefix = "PHANTOM EMAIL.QUERY "
	if !strings.HasPrefix(command, prefix) {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(command, prefix))
	return strings.Trim(rest, "'"), true
}
