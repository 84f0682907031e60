package services

import (
	"testing"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func ranks(contributors []models.Contributor) []int {
	out := make([]int, len(contributors))
	for i, c := range contributors {
		out[i] = c.Rank
	}
	return out
}

func TestRankContributors(t *testing.T) {
	t.Run("distinct totals", func(t *testing.T) {
		got := RankContributors([]models.Contributor{{Total: 300}, {Total: 200}, {Total: 100}})
		assert.Equal(t, []int{1, 2, 3}, ranks(got))
	})

	t.Run("tie at the top skips the next rank", func(t *testing.T) {
		got := RankContributors([]models.Contributor{{UserID: 1, Total: 100}, {UserID: 2, Total: 100}, {UserID: 3, Total: 50}})
		assert.Equal(t, []int{1, 1, 3}, ranks(got))
	})

	t.Run("tie in the middle", func(t *testing.T) {
		got := RankContributors([]models.Contributor{{Total: 9}, {Total: 5}, {Total: 5}, {Total: 5}, {Total: 1}})
		assert.Equal(t, []int{1, 2, 2, 2, 5}, ranks(got))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, RankContributors(nil))
	})
}
