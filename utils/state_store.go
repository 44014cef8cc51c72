package utils

import (
	"context"
	"sync"
	"time"
)

const stateKeyPrefix = "oauth:state:"

type stateEntry struct {
	next      string
	expiresAt time.Time
}

var (
	stateStore   = map[string]stateEntry{}
	stateStoreMu sync.Mutex
)

// SaveState remembers an OAuth state token and the local path to return to after the callback.
func SaveState(state, next string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Stored value must be non-empty so a hit is distinguishable from a miss
		_ = rc.Set(ctx, stateKeyPrefix+state, "n:"+next, ttl).Err()
		return
	}
	stateStoreMu.Lock()
	stateStore[state] = stateEntry{next: next, expiresAt: time.Now().Add(ttl)}
	stateStoreMu.Unlock()
}

// ConsumeState validates and removes a state token, returning the saved next path.
func ConsumeState(state string) (string, bool) {
	if state == "" {
		return "", false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := rc.GetDel(ctx, stateKeyPrefix+state).Result()
		if err != nil || len(v) < 2 {
			return "", false
		}
		return v[2:], true
	}

	stateStoreMu.Lock()
	entry, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.next, true
}
