package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	huntKeyPrefix     = "hunt:"
	defaultStagingTTL = 72 * time.Hour
)

// HuntedEmail is an address found by a hunt and waiting for a member to
// approve or discard it.
type HuntedEmail struct {
	ProspectID   string    `json:"speaker_id"`
	ProspectName string    `json:"speaker_name"`
	Email        string    `json:"email"`
	Source       string    `json:"source"`
	HuntedBy     string    `json:"hunted_by"`
	HuntedAt     time.Time `json:"hunted_at"`
}

// StagingStore keeps one pending hunted email per prospect in Redis. Entries
// expire after the TTL so abandoned hunts do not pile up.
type StagingStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStagingStore(client *redis.Client, ttl time.Duration) *StagingStore {
	if client == nil {
		panic("drafts: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStagingTTL
	}
	return &StagingStore{redis: client, ttl: ttl}
}

// Stage replaces any pending email for the same prospect.
func (s *StagingStore) Stage(ctx context.Context, h HuntedEmail) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("drafts: marshal hunted email: %w", err)
	}
	if err := s.redis.Set(ctx, huntKey(h.ProspectID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("drafts: stage hunted email: %w", err)
	}
	return nil
}

func (s *StagingStore) Get(ctx context.Context, prospectID string) (HuntedEmail, error) {
	data, err := s.redis.Get(ctx, huntKey(prospectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return HuntedEmail{}, ErrNotStaged
		}
		return HuntedEmail{}, fmt.Errorf("drafts: load hunted email: %w", err)
	}
	var h HuntedEmail
	if err := json.Unmarshal(data, &h); err != nil {
		return HuntedEmail{}, fmt.Errorf("drafts: decode hunted email: %w", err)
	}
	return h, nil
}

// List returns every pending email, newest first.
func (s *StagingStore) List(ctx context.Context) ([]HuntedEmail, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, huntKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("drafts: scan hunted emails: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	out := make([]HuntedEmail, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("drafts: load hunted emails: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}
		var h HuntedEmail
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			return nil, fmt.Errorf("drafts: decode hunted email %s: %w", strings.TrimPrefix(keys[i], huntKeyPrefix), err)
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].HuntedAt.Equal(out[j].HuntedAt) {
			return out[i].HuntedAt.After(out[j].HuntedAt)
		}
		return out[i].ProspectID < out[j].ProspectID
	})
	return out, nil
}

func (s *StagingStore) Delete(ctx context.Context, prospectID string) error {
	if err := s.redis.Del(ctx, huntKey(prospectID)).Err(); err != nil {
		return fmt.Errorf("drafts: delete hunted email: %w", err)
	}
	return nil
}

func huntKey(prospectID string) string {
	return huntKeyPrefix + prospectID
}
