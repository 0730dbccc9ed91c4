package qm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/emailorg/mvmail/internal/record"
	"github.com/emailorg/mvmail/internal/testutil"
)

func TestServiceTransportVerbs(t *testing.T) {
	store := testutil.NewStore()
	svc := testutil.NewWebSvc(t, store)
	transport := NewServiceTransport(svc.Config(), zerolog.Nop())
	ctx := context.Background()

	t.Run("write then read round-trips a record with marks", func(t *testing.T) {
		data := "E1" + record.FieldMark + "EMAIL" + record.FieldMark +
			"a@x" + record.ValueMark + "b@x" + record.SubvalueMark + "c@x"

		if err := transport.WriteRecord(ctx, "EMAILS", "E1", data); err != nil {
			t.Fatalf("WriteRecord failed: %v", err)
		}
		got, err := transport.ReadRecord(ctx, "EMAILS", "E1")
		if err != nil {
			t.Fatalf("ReadRecord failed: %v", err)
		}
		if got != data {
			t.Errorf("Round trip mismatch: got %q, want %q", got, data)
		}
	})

	t.Run("read of a missing record returns ErrNotFound", func(t *testing.T) {
		_, err := transport.ReadRecord(ctx, "EMAILS", "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("treats an empty stored record as missing", func(t *testing.T) {
		// The bridge answers missing and empty records identically, so the
		// client cannot do better than ErrNotFound here.
		store.Put("EMAILS", "EMPTY", "")

		_, err := transport.ReadRecord(ctx, "EMAILS", "EMPTY")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for an empty record, got %v", err)
		}
	})

	t.Run("rejected write surfaces a ServerError", func(t *testing.T) {
		store.FailWrite = func(file, id string) bool { return true }
		defer func() { store.FailWrite = nil }()

		err := transport.WriteRecord(ctx, "EMAILS", "E2", "E2")
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("Expected a ServerError, got %v", err)
		}
		if serverErr.Op != "write" {
			t.Errorf("Expected op write, got %s", serverErr.Op)
		}
	})

	t.Run("delete removes the record", func(t *testing.T) {
		store.Put("EMAILS", "E3", "E3")
		if err := transport.DeleteRecord(ctx, "EMAILS", "E3"); err != nil {
			t.Fatalf("DeleteRecord failed: %v", err)
		}
		if _, ok := store.Read("EMAILS", "E3"); ok {
			t.Error("Expected the record to be gone")
		}
	})

	t.Run("select returns matching IDs", func(t *testing.T) {
		store.Put("THREADS", "T1", "T1"+record.FieldMark+"THREAD"+record.FieldMark+"Budget")
		store.Put("THREADS", "T2", "T2"+record.FieldMark+"THREAD"+record.FieldMark+"Lunch")

		ids, err := transport.SelectIDs(ctx, "THREADS", "SELECT THREADS WITH SUBJECT LIKE '%Budget%'")
		if err != nil {
			t.Fatalf("SelectIDs failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != "T1" {
			t.Errorf("Expected [T1], got %v", ids)
		}
	})

	t.Run("select with no matches returns an empty slice", func(t *testing.T) {
		ids, err := transport.SelectIDs(ctx, "THREADS", "SELECT THREADS WITH SUBJECT LIKE '%zzz%'")
		if err != nil {
			t.Fatalf("SelectIDs failed: %v", err)
		}
		if ids == nil || len(ids) != 0 {
			t.Errorf("Expected an empty slice, got %v", ids)
		}
	})

	t.Run("execute returns the raw command output", func(t *testing.T) {
		out, err := transport.Execute(ctx, "CREATE.FILE CATEGORIES DIRECTORY")
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if out != "OK" {
			t.Errorf("Expected OK, got %q", out)
		}
	})

	t.Run("close is a no-op", func(t *testing.T) {
		if err := transport.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		if _, err := transport.ReadRecord(ctx, "EMAILS", "E1"); err != nil {
			t.Errorf("Expected reads to keep working after Close, got %v", err)
		}
	})
}

func TestServiceTransportErrors(t *testing.T) {
	t.Run("non-200 response surfaces a ServerError", func(t *testing.T) {
		store := testutil.NewStore()
		svc := testutil.NewWebSvc(t, store)
		transport := NewServiceTransport(svc.Config(), zerolog.Nop())

		svc.FailWith(http.StatusInternalServerError)
		_, err := transport.ReadRecord(context.Background(), "EMAILS", "E1")
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("Expected a ServerError, got %v", err)
		}
		if !strings.Contains(serverErr.Response, "status 500") {
			t.Errorf("Expected the status in the response, got %q", serverErr.Response)
		}

		// The transport holds no state, so recovery is immediate.
		svc.FailWith(0)
		store.Put("EMAILS", "E1", "E1")
		if _, err := transport.ReadRecord(context.Background(), "EMAILS", "E1"); err != nil {
			t.Errorf("Expected the next request to succeed, got %v", err)
		}
	})

	t.Run("bad credentials surface a ServerError", func(t *testing.T) {
		svc := testutil.NewWebSvc(t, testutil.NewStore())
		cfg := svc.Config()
		cfg.Password = "wrong"
		transport := NewServiceTransport(cfg, zerolog.Nop())

		_, err := transport.ReadRecord(context.Background(), "EMAILS", "E1")
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("Expected a ServerError, got %v", err)
		}
		if !strings.Contains(serverErr.Response, "status 401") {
			t.Errorf("Expected a 401 in the response, got %q", serverErr.Response)
		}
	})

	t.Run("unreachable service is not a ServerError", func(t *testing.T) {
		cfg := testutil.NewWebSvc(t, testutil.NewStore()).Config()
		cfg.WebSvcPort = 1
		transport := NewServiceTransport(cfg, zerolog.Nop())

		_, err := transport.ReadRecord(context.Background(), "EMAILS", "E1")
		if err == nil {
			t.Fatal("Expected an error")
		}
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			t.Errorf("Expected a plain transport error, got ServerError %v", serverErr)
		}
	})
}
