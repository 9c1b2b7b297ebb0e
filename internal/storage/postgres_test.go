package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDisabled(t *testing.T) {
	t.Parallel()

	var store StatusStore = Disabled{}

	if _, err := store.CreateStatusCheck(context.Background(), "client"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := store.ListStatusChecks(context.Background(), 10); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNewStatusCheck(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	check, err := newStatusCheck("  probe  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.ClientName != "probe" {
		t.Fatalf("expected trimmed client name, got %q", check.ClientName)
	}
	if check.ID == uuid.Nil {
		t.Fatal("expected id to be generated")
	}
	if check.Timestamp.Before(before) || check.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %v", check.Timestamp)
	}

	if _, err := newStatusCheck("   "); err == nil {
		t.Fatal("expected error for blank client name")
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	cases := map[int]int{
		-1:   MaxStatusChecks,
		0:    MaxStatusChecks,
		1:    1,
		1000: 1000,
		5000: MaxStatusChecks,
	}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestInsertAnalysisRequiresID(t *testing.T) {
	t.Parallel()

	p := &Postgres{}
	if err := p.InsertAnalysis(context.Background(), Analysis{Filename: "cv.pdf"}); err == nil {
		t.Fatal("expected error for missing id")
	}
}
