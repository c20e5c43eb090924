package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/ecgprep/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "ecgprep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestInsertAndListBuilds(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"aaaa-1", "bbbb-2", "cccc-3"} {
		start := base.Add(time.Duration(i) * time.Hour)
		b := model.BuildSummary{
			ID:            id,
			SourceDir:     "/data/mitdb",
			StartedAt:     start,
			EndedAt:       start.Add(2 * time.Second),
			WindowSeconds: 5,
			WindowSamples: 1800,
			Expand:        true,
			CacheHit:      i == 2,
			Windows:       100 * (i + 1),
			Positives:     7,
			RecordsUsed:   2,
			RecordsFailed: 1,
			Outcomes: []model.RecordOutcome{
				{Record: "101", Status: model.StatusUsed, Channels: 2, Windows: 50},
				{Record: "100", Status: model.StatusFailed, Detail: "missing header"},
			},
		}
		if err := st.InsertBuild(ctx, b); err != nil {
			t.Fatalf("insert build: %v", err)
		}
	}

	builds, err := st.ListBuilds(ctx, 2)
	if err != nil {
		t.Fatalf("list builds: %v", err)
	}
	if len(builds) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(builds))
	}
	latest := builds[0]
	if latest.ID != "cccc-3" || !latest.CacheHit || !latest.Expand {
		t.Fatalf("unexpected latest build: %+v", latest)
	}
	if latest.Windows != 300 || latest.WindowSamples != 1800 || latest.WindowSeconds != 5 {
		t.Fatalf("unexpected counts: %+v", latest)
	}
	if !latest.StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected start time %v", latest.StartedAt)
	}

	all, err := st.ListBuilds(ctx, 0)
	if err != nil {
		t.Fatalf("list builds: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 builds, got %d", len(all))
	}
}

func TestListRecordOutcomes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := model.BuildSummary{
		ID:        "build-1",
		StartedAt: time.Unix(0, 0).UTC(),
		EndedAt:   time.Unix(1, 0).UTC(),
		Outcomes: []model.RecordOutcome{
			{Record: "102", Status: model.StatusExcluded, Detail: "paced"},
			{Record: "100", Status: model.StatusUsed, Channels: 2, Windows: 722},
		},
	}
	if err := st.InsertBuild(ctx, b); err != nil {
		t.Fatalf("insert build: %v", err)
	}

	outcomes, err := st.ListRecordOutcomes(ctx, "build-1")
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Record != "100" || outcomes[0].Windows != 722 || outcomes[0].Channels != 2 {
		t.Fatalf("unexpected first outcome: %+v", outcomes[0])
	}
	if outcomes[1].Detail != "paced" || outcomes[1].Status != model.StatusExcluded {
		t.Fatalf("unexpected second outcome: %+v", outcomes[1])
	}

	none, err := st.ListRecordOutcomes(ctx, "missing")
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(none))
	}
}

func TestInsertBuildDuplicateRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := model.BuildSummary{
		ID:       "dup",
		Outcomes: []model.RecordOutcome{{Record: "100", Status: model.StatusUsed}},
	}
	if err := st.InsertBuild(ctx, b); err != nil {
		t.Fatalf("insert build: %v", err)
	}
	if err := st.InsertBuild(ctx, b); err == nil {
		t.Fatalf("expected duplicate build id to fail")
	}
	outcomes, err := st.ListRecordOutcomes(ctx, "dup")
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome after failed insert, got %d", len(outcomes))
	}
}

func TestResolveBuildID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"abc123", "abd456"} {
		if err := st.InsertBuild(ctx, model.BuildSummary{ID: id}); err != nil {
			t.Fatalf("insert build: %v", err)
		}
	}

	id, err := st.ResolveBuildID(ctx, "abc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("expected abc123, got %s", id)
	}
	if _, err := st.ResolveBuildID(ctx, "ab"); err == nil {
		t.Fatalf("expected ambiguous prefix error")
	}
	if _, err := st.ResolveBuildID(ctx, "zz"); !errors.Is(err, ErrBuildNotFound) {
		t.Fatalf("expected ErrBuildNotFound, got %v", err)
	}
}
