package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
)

// TotalAndTitle returns the sum of all surviving entries (0 when there are
// none) and the counter title. A missing counter yields ErrCounterNotFound.
func (l *ledgerTx) TotalAndTitle(ctx context.Context, counterID int64) (int64, string, error) {
	var (
		title string
		total int64
	)
	err := l.q.QueryRowContext(ctx, `
		SELECT t.dhikar_title, COALESCE(SUM(e.dhikar_count), 0)
		FROM dhikar_type t
		LEFT JOIN dhikar_entry e ON e.dhikar_type_id = t.id
		WHERE t.id = $1
		GROUP BY t.id, t.dhikar_title`,
		counterID).Scan(&title, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrCounterNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("total for counter %d: %w", counterID, err)
	}
	return total, title, nil
}

// Leaderboard sums entries per user and ranks them highest first.
func (l *ledgerTx) Leaderboard(ctx context.Context, counterID int64) ([]models.Contributor, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT user_id, SUM(dhikar_count) AS total
		FROM dhikar_entry
		WHERE dhikar_type_id = $1
		GROUP BY user_id
		ORDER BY total DESC, user_id ASC`,
		counterID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard for counter %d: %w", counterID, err)
	}
	defer rows.Close()

	var contributors []models.Contributor
	for rows.Next() {
		var c models.Contributor
		if err := rows.Scan(&c.UserID, &c.Total); err != nil {
			return nil, err
		}
		contributors = append(contributors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return RankContributors(contributors), nil
}

// RankContributors assigns standard competition ranks ("1224") to
// contributors already sorted by descending total: equal totals share a
// rank and the next distinct total skips the tied positions.
func RankContributors(contributors []models.Contributor) []models.Contributor {
	for i := range contributors {
		if i > 0 && contributors[i].Total == contributors[i-1].Total {
			contributors[i].Rank = contributors[i-1].Rank
			continue
		}
		contributors[i].Rank = i + 1
	}
	return contributors
}

// CounterLeaderboard is the leaderboard for a counter addressed by id, as
// the admin API does.
func (s *LedgerStore) CounterLeaderboard(ctx context.Context, counterID int64) (*models.Leaderboard, error) {
	var board *models.Leaderboard
	err := s.InTx(ctx, func(l Ledger) error {
		var err error
		board, err = buildLeaderboard(ctx, l, counterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	board.GeneratedAt = s.now()
	return board, nil
}
