package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func testJudgment(id, kind, dominant string, createdAt time.Time) *models.Judgment {
	return &models.Judgment{
		ID:   id,
		Kind: kind,
		Result: models.BatchAnalysisResponse{
			Success:      true,
			Emotions:     emotion.Normalize(map[string]float64{dominant: 1.0}),
			AnalysisText: "test analysis",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestSaveAndGetJudgment(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	if err := db.SaveJudgment(testJudgment("j-001", "batch", "happy", now)); err != nil {
		t.Fatalf("Failed to save judgment: %v", err)
	}

	got, err := db.GetJudgment("j-001")
	if err != nil {
		t.Fatalf("Failed to get judgment: %v", err)
	}
	if got.ID != "j-001" {
		t.Errorf("Expected ID 'j-001', got %q", got.ID)
	}
	if got.Kind != "batch" {
		t.Errorf("Expected kind 'batch', got %q", got.Kind)
	}
	if !got.Result.Success {
		t.Error("Expected success flag to round-trip")
	}
	if dominant := emotion.Dominant(got.Result.Emotions); dominant != "happy" {
		t.Errorf("Expected dominant 'happy', got %q", dominant)
	}
	if got.Result.AnalysisText != "test analysis" {
		t.Errorf("Expected analysis text to round-trip, got %q", got.Result.AnalysisText)
	}
}

func TestGetJudgmentNotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetJudgment("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListJudgmentsPagination(t *testing.T) {
	db := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"j-1", "j-2", "j-3"} {
		j := testJudgment(id, "single", "neutral", base.Add(time.Duration(i)*time.Minute))
		if err := db.SaveJudgment(j); err != nil {
			t.Fatalf("Failed to save judgment %s: %v", id, err)
		}
	}

	page, err := db.ListJudgments(2, 0)
	if err != nil {
		t.Fatalf("Failed to list judgments: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 judgments, got %d", len(page))
	}
	// Newest first.
	if page[0].ID != "j-3" || page[1].ID != "j-2" {
		t.Errorf("Unexpected order: %s, %s", page[0].ID, page[1].ID)
	}

	page, err = db.ListJudgments(2, 2)
	if err != nil {
		t.Fatalf("Failed to list second page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "j-1" {
		t.Errorf("Unexpected second page: %+v", page)
	}
}

func TestSearchByEmotion(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	if err := db.SaveJudgment(testJudgment("happy-1", "single", "happy", now)); err != nil {
		t.Fatalf("Failed to save judgment: %v", err)
	}
	if err := db.SaveJudgment(testJudgment("sad-1", "single", "sad", now)); err != nil {
		t.Fatalf("Failed to save judgment: %v", err)
	}

	got, err := db.SearchByEmotion("happy")
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 judgment, got %d", len(got))
	}
	if got[0].ID != "happy-1" {
		t.Errorf("Expected 'happy-1', got %q", got[0].ID)
	}

	got, err = db.SearchByEmotion("fearful")
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no judgments, got %d", len(got))
	}
}

func TestDeleteJudgment(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	if err := db.SaveJudgment(testJudgment("j-del", "single", "angry", now)); err != nil {
		t.Fatalf("Failed to save judgment: %v", err)
	}

	if err := db.DeleteJudgment("j-del"); err != nil {
		t.Fatalf("Failed to delete judgment: %v", err)
	}
	if _, err := db.GetJudgment("j-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := db.DeleteJudgment("j-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := setupTestDB(t)

	// Running migrations again must be a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}
