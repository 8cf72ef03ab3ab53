package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

// ErrNotFound is returned when a judgment does not exist.
var ErrNotFound = errors.New("judgment not found")

// SaveJudgment persists a completed analysis. The dominant emotion is stored
// denormalized so searches never unmarshal every row.
func (db *DB) SaveJudgment(j *models.Judgment) error {
	resultJSON, err := json.Marshal(j.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO judgments (id, kind, dominant_emotion, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, j.ID, j.Kind, emotion.Dominant(j.Result.Emotions), string(resultJSON), j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert judgment: %w", err)
	}

	return nil
}

// GetJudgment retrieves a judgment by ID
func (db *DB) GetJudgment(id string) (*models.Judgment, error) {
	var (
		kind       string
		resultJSON string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := db.conn.QueryRow(`
		SELECT kind, result, created_at, updated_at
		FROM judgments
		WHERE id = ?
	`, id).Scan(&kind, &resultJSON, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get judgment: %w", err)
	}

	var result models.BatchAnalysisResponse
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &models.Judgment{
		ID:        id,
		Kind:      kind,
		Result:    result,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// ListJudgments retrieves judgments with pagination, newest first
func (db *DB) ListJudgments(limit, offset int) ([]*models.Judgment, error) {
	rows, err := db.conn.Query(`
		SELECT id, kind, result, created_at, updated_at
		FROM judgments
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query judgments: %w", err)
	}
	defer rows.Close()

	return scanJudgments(rows)
}

// SearchByEmotion retrieves all judgments whose dominant emotion matches
func (db *DB) SearchByEmotion(name string) ([]*models.Judgment, error) {
	rows, err := db.conn.Query(`
		SELECT id, kind, result, created_at, updated_at
		FROM judgments
		WHERE dominant_emotion = ?
		ORDER BY created_at DESC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query judgments by emotion: %w", err)
	}
	defer rows.Close()

	return scanJudgments(rows)
}

// DeleteJudgment deletes a judgment by ID
func (db *DB) DeleteJudgment(id string) error {
	result, err := db.conn.Exec("DELETE FROM judgments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete judgment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func scanJudgments(rows *sql.Rows) ([]*models.Judgment, error) {
	var judgments []*models.Judgment
	for rows.Next() {
		var (
			id         string
			kind       string
			resultJSON string
			createdAt  time.Time
			updatedAt  time.Time
		)

		if err := rows.Scan(&id, &kind, &resultJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var result models.BatchAnalysisResponse
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}

		judgments = append(judgments, &models.Judgment{
			ID:        id,
			Kind:      kind,
			Result:    result,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return judgments, nil
}
