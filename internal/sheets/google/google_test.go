package google

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eventledger/internal/core"
	"eventledger/internal/report"
)

type fakeValues struct {
	cleared  []string
	updated  string
	values   [][]interface{}
	clearErr error
	writeErr error
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	return f.clearErr
}

func (f *fakeValues) Update(_ context.Context, _, rng string, values [][]interface{}) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.updated = rng
	f.values = values
	return rng, nil
}

func sampleReport() report.Report {
	l := core.EmptyLedger()
	l.Events = []core.Event{{ID: "ev1", Name: "Wedding", StartDate: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)}}
	l.ExpenseHeads = []core.ExpenseHead{{ID: "h1", EventID: "ev1", Name: "Catering", Category: "Food", TotalAmount: core.AmountFromInt(500)}}
	return report.Build(l, "INR", time.Now())
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "test-id", ServiceAccountFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestClient_WriteReport(t *testing.T) {
	fake := &fakeValues{}
	c := &Client{values: fake, spreadsheetID: "test", sheetName: "Budget"}

	ref, err := c.WriteReport(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if ref != "Budget!A1:G3" {
		t.Errorf("unexpected ref %q", ref)
	}
	if len(fake.cleared) != 1 || fake.cleared[0] != "Budget!A:Z" {
		t.Errorf("sheet should be cleared first, got %v", fake.cleared)
	}
	if len(fake.values) != 3 || fake.values[1][2] != "Catering" {
		t.Errorf("unexpected values %v", fake.values)
	}
}

func TestClient_WriteReportErrors(t *testing.T) {
	t.Run("not initialized", func(t *testing.T) {
		c := &Client{spreadsheetID: "test", sheetName: "Budget"}
		if _, err := c.WriteReport(context.Background(), sampleReport()); err == nil {
			t.Error("expected error with nil service")
		}
	})

	t.Run("clear fails", func(t *testing.T) {
		fake := &fakeValues{clearErr: errors.New("403")}
		c := &Client{values: fake, spreadsheetID: "test", sheetName: "Budget"}
		if _, err := c.WriteReport(context.Background(), sampleReport()); err == nil {
			t.Error("expected clear error")
		}
		if fake.values != nil {
			t.Error("nothing should be written after a failed clear")
		}
	})

	t.Run("update fails", func(t *testing.T) {
		fake := &fakeValues{writeErr: errors.New("quota")}
		c := &Client{values: fake, spreadsheetID: "test", sheetName: "Budget"}
		if _, err := c.WriteReport(context.Background(), sampleReport()); err == nil {
			t.Error("expected update error")
		}
	})
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{7, "G"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{703, "AAA"},
	}
	for _, tt := range tests {
		if got := columnName(tt.n); got != tt.want {
			t.Errorf("columnName(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTableRange(t *testing.T) {
	if got := tableRange("Budget", nil); got != "Budget!A1" {
		t.Errorf("empty table: got %q", got)
	}
	rows := [][]string{{"a", "b"}, {"c", "d", "e"}}
	if got := tableRange("Budget", rows); got != "Budget!A1:C2" {
		t.Errorf("got %q, want Budget!A1:C2", got)
	}
}
