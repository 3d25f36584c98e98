package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// ErrMaterialLocked is returned by MaterialLock.Acquire when another worker
// already holds the run lock for the same material.
var ErrMaterialLocked = errors.New(errors.CodeConflict, "material is already being processed by another worker")

// MaterialLock guards a single material against concurrent pipeline runs:
// cmd/worker can process several materials from a queue with multiple
// replicas, but two replicas picking up the same material at once would
// race on the same res_pi/tree_pi files and the same Postgres mirror rows.
// A held lock is a SETNX key tagged with a random owner token; Release only
// deletes the key when the token still matches, so a worker can never
// release a lock ownership already moved on past its TTL.
type MaterialLock struct {
	client *Client
	ttl    time.Duration
}

// NewMaterialLock returns a MaterialLock backed by client. ttl bounds how
// long a crashed worker can hold a material hostage; Driver.Run acquires
// fresh for each call, so ttl should comfortably exceed one run's expected
// wall time.
func NewMaterialLock(client *Client, ttl time.Duration) *MaterialLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MaterialLock{client: client, ttl: ttl}
}

// Held is a lock acquired for one material; Release gives it back.
type Held struct {
	lock  *MaterialLock
	key   string
	token string
}

func lockKey(material string) string { return "retrosynth:lock:material:" + material }

// Acquire takes the run lock for material, failing immediately with
// ErrMaterialLocked rather than blocking — a queued worker should requeue
// the material and move on, not stall behind another replica's run.
func (l *MaterialLock) Acquire(ctx context.Context, material string) (*Held, error) {
	key := lockKey(material)
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "acquire material lock").WithDetail("material=" + material)
	}
	if !ok {
		return nil, ErrMaterialLocked
	}
	return &Held{lock: l, key: key, token: token}, nil
}

// Release gives up the lock, but only if this Held still owns it — a lock
// whose TTL already expired and was reacquired by another worker is left
// alone rather than deleted out from under its new owner.
func (h *Held) Release(ctx context.Context) error {
	_, err := h.lock.client.EvalDelIfMatch(ctx, h.key, h.token)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "release material lock").WithDetail("key=" + h.key)
	}
	return nil
}
