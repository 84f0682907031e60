package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
)

const uniqueViolation = "23505"

// CreateCounter provisions a counter for a group topic. The (group, topic)
// pair is unique; a second counter for it yields ErrCounterExists.
func (s *LedgerStore) CreateCounter(ctx context.Context, groupID, topicID int64, title string) (*models.Counter, error) {
	counter := models.Counter{
		GroupID: groupID,
		TopicID: topicID,
		Title:   title,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO dhikar_type (group_id, dhikar_topic_id, dhikar_title)
		VALUES ($1, $2, $3)
		RETURNING id`,
		groupID, topicID, title).Scan(&counter.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrCounterExists
		}
		return nil, fmt.Errorf("create counter: %w", err)
	}
	return &counter, nil
}

func (s *LedgerStore) GetCounter(ctx context.Context, counterID int64) (*models.Counter, error) {
	var c models.Counter
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, dhikar_topic_id, dhikar_title
		FROM dhikar_type
		WHERE id = $1`, counterID).Scan(&c.ID, &c.GroupID, &c.TopicID, &c.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCounterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get counter %d: %w", counterID, err)
	}
	return &c, nil
}

func (s *LedgerStore) ListCounters(ctx context.Context) ([]models.Counter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, dhikar_topic_id, dhikar_title
		FROM dhikar_type
		ORDER BY group_id, dhikar_topic_id`)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	counters := []models.Counter{}
	for rows.Next() {
		var c models.Counter
		if err := rows.Scan(&c.ID, &c.GroupID, &c.TopicID, &c.Title); err != nil {
			return nil, err
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

func (s *LedgerStore) RenameCounter(ctx context.Context, counterID int64, title string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE dhikar_type
		SET dhikar_title = $1
		WHERE id = $2`, title, counterID)
	if err != nil {
		return fmt.Errorf("rename counter %d: %w", counterID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCounterNotFound
	}
	return nil
}
