package cache

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DirtySet tracks entities whose counters may have drifted after a failed delta.
type DirtySet struct {
	rdb redis.Cmdable
}

// NewDirtySet returns a dirty-entity tracker. A nil client makes it a no-op.
func NewDirtySet(rdb redis.Cmdable) *DirtySet {
	return &DirtySet{rdb: rdb}
}

func dirtyKey(entity string) string {
	return "counters:dirty:" + entity
}

// Mark records id of entity ("listing" or "user") for targeted reconciliation.
func (d *DirtySet) Mark(ctx context.Context, entity string, id uint) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.SAdd(ctx, dirtyKey(entity), strconv.FormatUint(uint64(id), 10)).Err()
}

// Pop removes and returns up to n ids of entity.
func (d *DirtySet) Pop(ctx context.Context, entity string, n int64) ([]uint, error) {
	if d == nil || d.rdb == nil {
		return nil, nil
	}
	members, err := d.rdb.SPopN(ctx, dirtyKey(entity), n).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		v, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids, nil
}

// Size reports how many ids of entity are waiting.
func (d *DirtySet) Size(ctx context.Context, entity string) (int64, error) {
	if d == nil || d.rdb == nil {
		return 0, nil
	}
	return d.rdb.SCard(ctx, dirtyKey(entity)).Result()
}
