package database

import (
	"context"
	"path/filepath"
	"testing"

	"askrelay/pkg/interfaces"
	"askrelay/pkg/types"
)

// Compile-time check against the ResolutionLog interface
var _ interfaces.ResolutionLog = (*Manager)(nil)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(filepath.Join(t.TempDir(), "askrelay_test.db"))
	if err != nil {
		t.Fatalf("failed to create database manager: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })

	return manager
}

func sampleRecord(id, askID, status string) *types.ResolutionRecord {
	index := 0
	return &types.ResolutionRecord{
		ID:     id,
		AskID:  askID,
		Status: status,
		Answers: []types.AskAnswer{
			{ID: "q1", SelectedLabel: "Yes", SelectedIndex: &index},
		},
		RequestedAtISO: "2026-08-28T10:00:00Z",
		ResolvedAtISO:  "2026-08-28T10:01:00Z",
		Source:         "askrelay-ui",
	}
}

func TestManager_RecordAndListResolutions(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	note := "shipped"
	record := sampleRecord("res-1", "ask-1", types.StatusAnswered)
	record.Note = &note

	if err := manager.RecordResolution(ctx, record); err != nil {
		t.Fatalf("failed to record resolution: %v", err)
	}

	records, err := manager.ListResolutions(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list resolutions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}

	got := records[0]
	if got.ID != "res-1" || got.AskID != "ask-1" || got.Status != types.StatusAnswered {
		t.Errorf("record fields mismatch: %+v", got)
	}
	if got.Note == nil || *got.Note != "shipped" {
		t.Errorf("expected note to round-trip, got %v", got.Note)
	}
	if len(got.Answers) != 1 || got.Answers[0].SelectedLabel != "Yes" {
		t.Errorf("expected answers to round-trip, got %+v", got.Answers)
	}
}

func TestManager_ListOrderAndLimit(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	early := sampleRecord("res-early", "ask-early", types.StatusAnswered)
	early.ResolvedAtISO = "2026-08-28T09:00:00Z"
	late := sampleRecord("res-late", "ask-late", types.StatusExpired)
	late.ResolvedAtISO = "2026-08-28T11:00:00Z"

	for _, record := range []*types.ResolutionRecord{early, late} {
		if err := manager.RecordResolution(ctx, record); err != nil {
			t.Fatalf("failed to record resolution: %v", err)
		}
	}

	records, err := manager.ListResolutions(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list resolutions: %v", err)
	}
	if len(records) != 2 || records[0].ID != "res-late" {
		t.Errorf("expected most recent first, got %+v", records)
	}

	limited, err := manager.ListResolutions(ctx, 1)
	if err != nil {
		t.Fatalf("failed to list with limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "res-late" {
		t.Errorf("expected limit to keep the most recent record, got %+v", limited)
	}
}

func TestManager_NullNote(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	if err := manager.RecordResolution(ctx, sampleRecord("res-1", "ask-1", types.StatusCancelled)); err != nil {
		t.Fatalf("failed to record resolution: %v", err)
	}

	records, err := manager.ListResolutions(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list resolutions: %v", err)
	}
	if records[0].Note != nil {
		t.Errorf("expected nil note, got %q", *records[0].Note)
	}
}

func TestManager_HealthCheck(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.HealthCheck(context.Background()); err != nil {
		t.Errorf("health check failed: %v", err)
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	manager, err := NewManager(filepath.Join(t.TempDir(), "askrelay_test.db"))
	if err != nil {
		t.Fatalf("failed to create database manager: %v", err)
	}

	if err := manager.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}

	if err := manager.RecordResolution(context.Background(), sampleRecord("res-1", "ask-1", types.StatusAnswered)); err == nil {
		t.Error("writes after close should fail")
	}
}
