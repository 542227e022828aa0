//go:build integration

package archive

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	apperrors "github.com/trackstats/trackstats/pkg/errors"
	"github.com/trackstats/trackstats/pkg/report"
)

func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, uri, "trackstats_test")
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	defer store.Close(ctx)

	doc := &report.Document{
		Title:     "Bug Report",
		Source:    "bugzilla",
		Generated: time.Now().UTC().Truncate(time.Millisecond),
		Sections: []report.Section{{
			Title:  "Totals",
			Tables: []report.Table{{Columns: []string{"metric", "value"}, Rows: [][]string{{"open", "120"}}}},
		}},
	}

	run, err := store.Put(ctx, doc, "week")
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if run.ID == "" {
		t.Fatal("Put() returned empty run id")
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Title != doc.Title || got.Source != doc.Source {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Document.Sections) != 1 {
		t.Errorf("document body did not round trip: %+v", got.Document)
	}

	runs, err := store.List(ctx, "bugzilla", 10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	found := false
	for _, r := range runs {
		if r.ID == run.ID {
			found = true
		}
	}
	if !found {
		t.Error("List() did not include the stored run")
	}

	_, err = store.Get(ctx, "no-such-run")
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeRunNotFound {
		t.Errorf("Get(missing) error = %v, want ErrCodeRunNotFound", err)
	}
}
