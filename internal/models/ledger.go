package models

import (
	"time"
)

type LedgerEntry struct {
	EntryID   int64     `json:"entry_id" db:"entry_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Amount    int64     `json:"amount" db:"dhikar_count"` // always > 0
	CounterID int64     `json:"counter_id" db:"dhikar_type_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Contributor struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Total  int64  `json:"total"`
	Rank   int    `json:"rank"`
}
