package services

import (
	"context"
	"sort"
	"sync"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) InTx(ctx context.Context, fn func(Ledger) error) error {
	return fn(m)
}

func (m *MockLedger) ResolveCounter(ctx context.Context, groupID, topicID int64) (int64, bool, error) {
	args := m.Called(groupID, topicID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockLedger) AppendEntry(ctx context.Context, counterID, userID, amount int64) (int64, error) {
	args := m.Called(counterID, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) RetractEntry(ctx context.Context, counterID, userID, amount int64) (bool, error) {
	args := m.Called(counterID, userID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) TotalAndTitle(ctx context.Context, counterID int64) (int64, string, error) {
	args := m.Called(counterID)
	return args.Get(0).(int64), args.String(1), args.Error(2)
}

func (m *MockLedger) Leaderboard(ctx context.Context, counterID int64) ([]models.Contributor, error) {
	args := m.Called(counterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contributor), args.Error(1)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogOutcome(msg InboundMessage, outcome Outcome) {
	m.Called(msg, outcome)
}

func (m *MockAuditor) LogError(msg InboundMessage, err error) {
	m.Called(msg, err)
}

// memLedger is an in-memory Ledger with the same semantics as the Postgres
// store. InTx discards every change made by a failing unit of work.
type memLedger struct {
	mu       sync.Mutex
	counters []models.Counter
	entries  []models.LedgerEntry
	nextID   int64
}

func newMemLedger(counters ...models.Counter) *memLedger {
	return &memLedger{counters: counters, nextID: 1}
}

func (m *memLedger) InTx(ctx context.Context, fn func(Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := append([]models.LedgerEntry(nil), m.entries...)
	savedID := m.nextID
	if err := fn(m); err != nil {
		m.entries, m.nextID = saved, savedID
		return err
	}
	return nil
}

func (m *memLedger) ResolveCounter(ctx context.Context, groupID, topicID int64) (int64, bool, error) {
	for _, c := range m.counters {
		if c.GroupID == groupID && c.TopicID == topicID {
			return c.ID, true, nil
		}
	}
	return 0, false, nil
}

func (m *memLedger) AppendEntry(ctx context.Context, counterID, userID, amount int64) (int64, error) {
	if amount <= 0 || amount > MaxAmount {
		return 0, ErrInvalidAmount
	}
	id := m.nextID
	m.nextID++
	m.entries = append(m.entries, models.LedgerEntry{EntryID: id, UserID: userID, Amount: amount, CounterID: counterID})
	return id, nil
}

func (m *memLedger) RetractEntry(ctx context.Context, counterID, userID, amount int64) (bool, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.CounterID == counterID && e.UserID == userID && e.Amount == amount {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) TotalAndTitle(ctx context.Context, counterID int64) (int64, string, error) {
	for _, c := range m.counters {
		if c.ID == counterID {
			var total int64
			for _, e := range m.entries {
				if e.CounterID == counterID {
					total += e.Amount
				}
			}
			return total, c.Title, nil
		}
	}
	return 0, "", ErrCounterNotFound
}

func (m *memLedger) Leaderboard(ctx context.Context, counterID int64) ([]models.Contributor, error) {
	sums := map[int64]int64{}
	for _, e := range m.entries {
		if e.CounterID == counterID {
			sums[e.UserID] += e.Amount
		}
	}
	var contributors []models.Contributor
	for userID, total := range sums {
		contributors = append(contributors, models.Contributor{UserID: userID, Total: total})
	}
	sort.Slice(contributors, func(i, j int) bool {
		if contributors[i].Total != contributors[j].Total {
			return contributors[i].Total > contributors[j].Total
		}
		return contributors[i].UserID < contributors[j].UserID
	})
	return RankContributors(contributors), nil
}
