package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
)

type OutcomeKind string

const (
	OutcomeUnrecognized OutcomeKind = "UNRECOGNIZED"
	OutcomeRejected     OutcomeKind = "REJECTED"
	OutcomeApplied      OutcomeKind = "APPLIED"
)

type RejectReason string

const (
	RejectNotANumber      RejectReason = "not_a_number"
	RejectZeroAmount      RejectReason = "zero_amount"
	RejectNoMatchingEntry RejectReason = "no_matching_entry"
	RejectAmountTooLarge  RejectReason = "amount_too_large"
)

// InboundMessage is what the transport knows about one chat message.
type InboundMessage struct {
	GroupID    int64
	TopicID    int64
	UserID     int64
	Text       string
	Privileged bool
}

// Outcome is the terminal state reached for one inbound message.
type Outcome struct {
	Kind      OutcomeKind
	Reason    RejectReason
	CounterID int64
	Title     string
	Total     int64
	// Delta is signed: positive for an added entry, negative for a retraction.
	Delta int64
}

func (o Outcome) Added() bool   { return o.Kind == OutcomeApplied && o.Delta > 0 }
func (o Outcome) Removed() bool { return o.Kind == OutcomeApplied && o.Delta < 0 }

// Auditor records interpreter results. A nil Auditor is allowed.
type Auditor interface {
	LogOutcome(msg InboundMessage, outcome Outcome)
	LogError(msg InboundMessage, err error)
}

type Interpreter struct {
	ledger TxLedger
	audit  Auditor
	now    func() time.Time
}

func NewInterpreter(ledger TxLedger, audit Auditor) *Interpreter {
	return &Interpreter{
		ledger: ledger,
		audit:  audit,
		now:    time.Now,
	}
}

// ParseAmount reads a signed base-10 integer, tolerating surrounding
// whitespace, a leading '+', and '_' digit separators.
func ParseAmount(text string) (int64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, "_") {
		if strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") || strings.Contains(s, "__") ||
			strings.HasPrefix(s, "-_") || strings.HasPrefix(s, "+_") {
			return 0, false
		}
		s = strings.ReplaceAll(s, "_", "")
	}
	s, ok := asciiDigits(s)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// asciiDigits rewrites decimal digits of any script (Arabic-Indic "٥٠",
// Persian "۱۰۰") as ASCII. Other non-ASCII runes fail.
func asciiDigits(s string) (string, bool) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return s, true
	}

	var sb strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf {
			sb.WriteRune(r)
			continue
		}
		d, ok := digitValue(r)
		if !ok {
			return "", false
		}
		sb.WriteByte('0' + d)
	}
	return sb.String(), true
}

// digitValue returns the value of a Unicode Nd rune. Nd ranges are runs of
// whole zero-to-nine blocks, so the value is the offset within the run mod 10.
func digitValue(r rune) (byte, bool) {
	for _, rng := range unicode.Nd.R16 {
		if r >= rune(rng.Lo) && r <= rune(rng.Hi) && rng.Stride == 1 {
			return byte((r - rune(rng.Lo)) % 10), true
		}
	}
	for _, rng := range unicode.Nd.R32 {
		if r >= rune(rng.Lo) && r <= rune(rng.Hi) && rng.Stride == 1 {
			return byte((r - rune(rng.Lo)) % 10), true
		}
	}
	return 0, false
}

// Interpret turns one message into a ledger mutation or a rejection.
// Resolution, mutation and the recomputed total share one transaction.
// Persistence failures are returned as errors and never retried.
func (i *Interpreter) Interpret(ctx context.Context, msg InboundMessage) (Outcome, error) {
	var outcome Outcome
	err := i.ledger.InTx(ctx, func(l Ledger) error {
		var err error
		outcome, err = i.interpret(ctx, l, msg)
		return err
	})
	if err != nil {
		log.Printf("[INTERPRETER] group=%d topic=%d user=%d failed: %v", msg.GroupID, msg.TopicID, msg.UserID, err)
		if i.audit != nil {
			i.audit.LogError(msg, err)
		}
		return Outcome{}, err
	}

	if i.audit != nil && outcome.Kind != OutcomeUnrecognized {
		i.audit.LogOutcome(msg, outcome)
	}
	return outcome, nil
}

func (i *Interpreter) interpret(ctx context.Context, l Ledger, msg InboundMessage) (Outcome, error) {
	value, numeric := ParseAmount(msg.Text)

	// Unconfigured locations are silent for every sender, so counter
	// resolution happens before the sender is told off for non-numeric text.
	counterID, found, err := l.ResolveCounter(ctx, msg.GroupID, msg.TopicID)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{Kind: OutcomeUnrecognized}, nil
	}

	if !numeric {
		if msg.Privileged {
			return Outcome{Kind: OutcomeUnrecognized, CounterID: counterID}, nil
		}
		return rejected(counterID, RejectNotANumber), nil
	}

	switch {
	case value == 0:
		return rejected(counterID, RejectZeroAmount), nil
	case value > MaxAmount || value < -MaxAmount:
		return rejected(counterID, RejectAmountTooLarge), nil
	case value > 0:
		if _, err := l.AppendEntry(ctx, counterID, msg.UserID, value); err != nil {
			return Outcome{}, err
		}
	default:
		removed, err := l.RetractEntry(ctx, counterID, msg.UserID, -value)
		if err != nil {
			return Outcome{}, err
		}
		if !removed {
			return rejected(counterID, RejectNoMatchingEntry), nil
		}
	}

	total, title, err := l.TotalAndTitle(ctx, counterID)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Kind:      OutcomeApplied,
		CounterID: counterID,
		Title:     title,
		Total:     total,
		Delta:     value,
	}, nil
}

// CounterConfigured reports whether (groupID, topicID) has a counter.
func (i *Interpreter) CounterConfigured(ctx context.Context, groupID, topicID int64) (bool, error) {
	var found bool
	err := i.ledger.InTx(ctx, func(l Ledger) error {
		var err error
		_, found, err = l.ResolveCounter(ctx, groupID, topicID)
		return err
	})
	return found, err
}

// Leaderboard returns the ranked contributors of the counter configured for
// (groupID, topicID), or ErrCounterNotFound.
func (i *Interpreter) Leaderboard(ctx context.Context, groupID, topicID int64) (*models.Leaderboard, error) {
	var board *models.Leaderboard
	err := i.ledger.InTx(ctx, func(l Ledger) error {
		counterID, found, err := l.ResolveCounter(ctx, groupID, topicID)
		if err != nil {
			return err
		}
		if !found {
			return ErrCounterNotFound
		}

		board, err = buildLeaderboard(ctx, l, counterID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrCounterNotFound) {
			log.Printf("[INTERPRETER] leaderboard group=%d topic=%d failed: %v", groupID, topicID, err)
		}
		return nil, err
	}

	board.GeneratedAt = i.now()
	return board, nil
}

func buildLeaderboard(ctx context.Context, l Ledger, counterID int64) (*models.Leaderboard, error) {
	_, title, err := l.TotalAndTitle(ctx, counterID)
	if err != nil {
		return nil, err
	}

	contributors, err := l.Leaderboard(ctx, counterID)
	if err != nil {
		return nil, err
	}
	if contributors == nil {
		contributors = []models.Contributor{}
	}

	return &models.Leaderboard{
		CounterID:    counterID,
		Title:        title,
		Contributors: contributors,
	}, nil
}

func rejected(counterID int64, reason RejectReason) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason, CounterID: counterID}
}
