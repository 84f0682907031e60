package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// UserDirectory remembers the display name of every sender so leaderboards
// can show names for users who are not in the current update.
type UserDirectory struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewUserDirectory(redis *redis.Client, ttl time.Duration) *UserDirectory {
	return &UserDirectory{
		redis: redis,
		ttl:   ttl,
	}
}

// DisplayName prefers "First Last", then the username, then "User<id>".
func DisplayName(userID int64, firstName, lastName, username string) string {
	if firstName != "" {
		if lastName != "" {
			return firstName + " " + lastName
		}
		return firstName
	}
	if username != "" {
		return username
	}
	return FallbackName(userID)
}

func FallbackName(userID int64) string {
	return "User" + strconv.FormatInt(userID, 10)
}

func nameKey(userID int64) string {
	return fmt.Sprintf("dhikr:user:%d:name", userID)
}

func (d *UserDirectory) Remember(ctx context.Context, userID int64, name string) error {
	if d == nil || d.redis == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return d.redis.Set(ctx, nameKey(userID), name, d.ttl).Err()
}

func (d *UserDirectory) Name(ctx context.Context, userID int64) string {
	return d.Names(ctx, []int64{userID})[userID]
}

// Names resolves many users in one round trip. Users the directory has
// never seen, and every user when redis is unavailable, get FallbackName.
func (d *UserDirectory) Names(ctx context.Context, userIDs []int64) map[int64]string {
	names := make(map[int64]string, len(userIDs))
	for _, id := range userIDs {
		names[id] = FallbackName(id)
	}
	if d == nil || d.redis == nil || len(userIDs) == 0 {
		return names
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = nameKey(id)
	}

	values, err := d.redis.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("[DIRECTORY] name lookup failed: %v", err)
		return names
	}
	for i, v := range values {
		if s, ok := v.(string); ok && s != "" {
			names[userIDs[i]] = s
		}
	}
	return names
}
