package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"hlopg/internal/domain/popup"
)

const draftKeyPrefix = "hlopg:draft:"

// DraftStore keeps popup drafts as JSON with a key TTL matching the draft expiry,
// so every API replica sees the same sessions.
type DraftStore struct {
	kv    KV
	clock func() time.Time
}

func NewDraftStore(kv KV, clock func() time.Time) *DraftStore {
	if clock == nil {
		clock = time.Now
	}
	return &DraftStore{kv: kv, clock: clock}
}

func (s *DraftStore) Save(ctx context.Context, draft *popup.Draft) error {
	ttl := draft.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return s.Delete(ctx, draft.ID)
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("redis: encode draft: %w", err)
	}
	return s.kv.Set(ctx, draftKeyPrefix+string(draft.ID), payload, ttl).Err()
}

func (s *DraftStore) Get(ctx context.Context, id popup.DraftID) (*popup.Draft, error) {
	return s.decode(s.kv.Get(ctx, draftKeyPrefix+string(id)))
}

// Take uses GETDEL so only one replica can claim a draft.
func (s *DraftStore) Take(ctx context.Context, id popup.DraftID) (*popup.Draft, error) {
	return s.decode(s.kv.GetDel(ctx, draftKeyPrefix+string(id)))
}

func (s *DraftStore) decode(cmd *redis.StringCmd) (*popup.Draft, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, popup.ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	var draft popup.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("redis: decode draft: %w", err)
	}
	if draft.Expired(s.clock()) {
		return nil, popup.ErrDraftNotFound
	}
	return &draft, nil
}

func (s *DraftStore) Delete(ctx context.Context, id popup.DraftID) error {
	return s.kv.Del(ctx, draftKeyPrefix+string(id)).Err()
}

var _ popup.DraftStore = (*DraftStore)(nil)
