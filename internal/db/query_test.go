package db

import (
	"testing"
	"time"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name string
		crit *Criteria
		want string
	}{
		{
			name: "nil criteria selects the whole file",
			crit: nil,
			want: "SELECT EMAILS",
		},
		{
			name: "empty criteria selects the whole file",
			crit: &Criteria{},
			want: "SELECT EMAILS",
		},
		{
			name: "single equality",
			crit: new(Criteria).Equal("THREAD_ID", "T1"),
			want: "SELECT EMAILS WITH THREAD_ID = 'T1'",
		},
		{
			name: "membership and substring in insertion order",
			crit: new(Criteria).In("ACCOUNT_ID", []string{"a", "b"}).Contains("SUBJECT", "Budget"),
			want: "SELECT EMAILS WITH ACCOUNT_ID IN ('a','b') AND SUBJECT LIKE '%Budget%'",
		},
		{
			name: "insertion order is preserved, not sorted",
			crit: new(Criteria).Contains("SUBJECT", "Budget").In("ACCOUNT_ID", []string{"a", "b"}),
			want: "SELECT EMAILS WITH SUBJECT LIKE '%Budget%' AND ACCOUNT_ID IN ('a','b')",
		},
		{
			name: "date bounds render RFC 3339 in UTC",
			crit: new(Criteria).
				OnOrAfter("DATE_SENT", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)).
				OnOrBefore("DATE_SENT", time.Date(2024, 1, 20, 15, 30, 0, 0, time.UTC)),
			want: "SELECT EMAILS WITH DATE_SENT >= '2024-01-05T00:00:00Z' AND DATE_SENT <= '2024-01-20T15:30:00Z'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSelect("EMAILS", tt.crit); got != tt.want {
				t.Errorf("BuildSelect mismatch:\n got  %s\n want %s", got, tt.want)
			}
		})
	}
}

func TestEmailFilterCriteria(t *testing.T) {
	t.Run("renders every field in fixed order", func(t *testing.T) {
		filter := EmailFilter{
			AccountIDs:  []string{"ACC1", "ACC2"},
			ThreadID:    "T1",
			FromAddress: "alice",
			ToAddress:   "bob",
			Subject:     "Budget",
			StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		}

		want := "ACCOUNT_ID IN ('ACC1','ACC2')" +
			" AND THREAD_ID = 'T1'" +
			" AND FROM_ADDRESS LIKE '%alice%'" +
			" AND TO_ADDRESSES LIKE '%bob%'" +
			" AND SUBJECT LIKE '%Budget%'" +
			" AND DATE_SENT >= '2024-01-01T00:00:00Z'" +
			" AND DATE_SENT <= '2024-02-01T00:00:00Z'"

		if got := filter.criteria().Clauses(); got != want {
			t.Errorf("Clauses mismatch:\n got  %s\n want %s", got, want)
		}
	})

	t.Run("zero filter renders no clauses", func(t *testing.T) {
		if got := (EmailFilter{}).criteria().Clauses(); got != "" {
			t.Errorf("Expected no clauses, got %s", got)
		}
	})
}

func TestThreadFilterCriteria(t *testing.T) {
	filter := ThreadFilter{
		Subject:   "Budget",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	want := "SUBJECT LIKE '%Budget%'" +
		" AND DATE_STARTED >= '2024-01-01T00:00:00Z'" +
		" AND LAST_DATE <= '2024-02-01T00:00:00Z'"

	if got := filter.criteria().Clauses(); got != want {
		t.Errorf("Clauses mismatch:\n got  %s\n want %s", got, want)
	}
}
