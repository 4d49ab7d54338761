package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/redis"
)

const defaultLockTTL = 5 * time.Second

// BuyerLock serializes checkout attempts per buyer with a Redis SETNX lease.
// The short TTL is a crash backstop: a process that dies mid-checkout only
// blocks that buyer until the lease expires.
type BuyerLock struct {
	store redis.LockStore
	ttl   time.Duration
}

// NewBuyerLock constructs a Redis-backed per-buyer checkout lock.
func NewBuyerLock(store redis.LockStore, ttl time.Duration) (*BuyerLock, error) {
	if store == nil {
		return nil, errors.New("redis store required for checkout lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &BuyerLock{store: store, ttl: ttl}, nil
}

// LockLease is one acquired lock. Release only frees the key while this
// lease still owns it; an expired lease never deletes a successor's lock.
type LockLease struct {
	store redis.LockStore
	key   string
	owner string
}

// Acquire takes the buyer's lock or fails fast with CHECKOUT_IN_PROGRESS.
func (l *BuyerLock) Acquire(ctx context.Context, buyerID uuid.UUID) (*LockLease, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	key := l.store.CheckoutLockKey(buyerID.String())
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "another checkout is in flight for this buyer")
	}
	return &LockLease{store: l.store, key: key, owner: owner}, nil
}

// Release frees the lock if this lease still owns it. The owner comparison
// and the delete run as one server-side operation, so an expired lease can
// never remove a successor's lock, even if the successor acquires it between
// the two steps.
func (lease *LockLease) Release(ctx context.Context) error {
	if lease == nil || lease.owner == "" {
		return nil
	}
	if _, err := lease.store.ReleaseLock(ctx, lease.key, lease.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	lease.owner = ""
	return nil
}
