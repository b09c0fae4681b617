package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaveMarkerRepository records "I am leaving on purpose" flags so the
// membership watcher can tell a voluntary leave from a kick. Markers are keyed
// per party and user so consuming one member's marker can never destroy
// another's. The marker is set before the member removal and consumed exactly
// once; the TTL is the validity window, there is no follow-up clear write to
// race against.
type LeaveMarkerRepository interface {
	Set(ctx context.Context, partyID, userID string) error
	// Consume reports whether a live marker existed for this user and removes
	// it atomically.
	Consume(ctx context.Context, partyID, userID string) (bool, error)
}

const leaveMarkerTTL = 30 * time.Second

type redisMarkerRepo struct {
	rdb *redis.Client
}

func NewLeaveMarkerRepository(rdb *redis.Client) LeaveMarkerRepository {
	return &redisMarkerRepo{rdb: rdb}
}

func markerKey(partyID, userID string) string {
	return "party:leave_marker:" + partyID + ":" + userID
}

func (r *redisMarkerRepo) Set(ctx context.Context, partyID, userID string) error {
	return r.rdb.Set(ctx, markerKey(partyID, userID), "1", leaveMarkerTTL).Err()
}

func (r *redisMarkerRepo) Consume(ctx context.Context, partyID, userID string) (bool, error) {
	_, err := r.rdb.GetDel(ctx, markerKey(partyID, userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
