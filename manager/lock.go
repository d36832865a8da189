package manager

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/util"
)

// operation is one logical call into the manager. Nested steps of the same
// call share its token, so re-acquiring a lock it already holds is a no-op.
type operation struct {
	ctx   context.Context
	token string
	// live is false when an already persisted record is being applied, in
	// which case nothing is written back to the store.
	live bool
}

func newLiveOperation(ctx context.Context) *operation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &operation{
		ctx:   ctx,
		token: util.UUID(),
		live:  true,
	}
}

func newReplayOperation() *operation {
	return &operation{
		ctx:   context.Background(),
		token: util.UUID(),
		live:  false,
	}
}

// tokenLock wraps a non-reentrant Locker with ownership tracking by token.
type tokenLock struct {
	name   string
	locker kvstore.Locker

	mutex *sync.Mutex
	owner string
	depth int
}

func newTokenLock(name string, locker kvstore.Locker) *tokenLock {
	return &tokenLock{
		name:   name,
		locker: locker,
		mutex:  &sync.Mutex{},
	}
}

func (l *tokenLock) lock(op *operation) error {
	l.mutex.Lock()
	if l.depth > 0 && l.owner == op.token {
		l.depth++
		l.mutex.Unlock()
		return nil
	}
	l.mutex.Unlock()

	if err := l.locker.Lock(op.ctx); err != nil {
		return errors.Wrapf(err, "unable to acquire %v lock", l.name)
	}

	l.mutex.Lock()
	l.owner = op.token
	l.depth = 1
	l.mutex.Unlock()
	return nil
}

func (l *tokenLock) unlock(op *operation) {
	l.mutex.Lock()
	if l.depth == 0 || l.owner != op.token {
		l.mutex.Unlock()
		logrus.Errorf("BUG: %v lock released by operation %v which doesn't own it", l.name, op.token)
		return
	}
	l.depth--
	if l.depth > 0 {
		l.mutex.Unlock()
		return
	}
	l.owner = ""
	l.mutex.Unlock()

	// The caller's context may already be gone, the lock must still be
	// released.
	if err := l.locker.Unlock(context.Background()); err != nil {
		logrus.WithError(err).Errorf("Failed to release %v lock", l.name)
	}
}

func (l *tokenLock) heldBy(op *operation) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.depth > 0 && l.owner == op.token
}

// DualLock is the distributed configuration lock of the gateway group and
// the local engine-call lock. Lock order is always distributed then local.
type DualLock struct {
	distributed *tokenLock
	local       *tokenLock
}

func NewDualLock(distributed kvstore.Locker) *DualLock {
	return &DualLock{
		distributed: newTokenLock("configuration", distributed),
		local:       newTokenLock("engine", kvstore.NewLocalLocker()),
	}
}

func (l *DualLock) Lock(op *operation) error {
	if l.local.heldBy(op) && !l.distributed.heldBy(op) {
		// Taking the distributed lock here would wait while holding the
		// local one.
		return errors.Errorf("BUG: operation %v takes the configuration lock while holding the engine lock", op.token)
	}
	if err := l.distributed.lock(op); err != nil {
		return err
	}
	if err := l.local.lock(op); err != nil {
		l.distributed.unlock(op)
		return err
	}
	return nil
}

func (l *DualLock) Unlock(op *operation) {
	l.local.unlock(op)
	l.distributed.unlock(op)
}

// LockLocal takes only the engine-call lock, for read only queries.
func (l *DualLock) LockLocal(op *operation) error {
	return l.local.lock(op)
}

func (l *DualLock) UnlockLocal(op *operation) {
	l.local.unlock(op)
}
