package models

import (
	"time"
)

// Counter is one countable topic: at most one per (group, topic).
type Counter struct {
	ID      int64  `json:"id" db:"id"`
	GroupID int64  `json:"group_id" db:"group_id"`
	TopicID int64  `json:"topic_id" db:"dhikar_topic_id"`
	Title   string `json:"title" db:"dhikar_title"`
}

// CounterSummary is a counter together with its running total.
type CounterSummary struct {
	Counter Counter `json:"counter"`
	Total   int64   `json:"total"`
}

// Leaderboard is the ranked view of one counter's contributors.
type Leaderboard struct {
	CounterID    int64         `json:"counter_id"`
	Title        string        `json:"title"`
	Contributors []Contributor `json:"contributors"`
	GeneratedAt  time.Time     `json:"generated_at"`
}
