package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTableSerializes(t *testing.T) {
	locks := newLockTable()

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locks.withLock(TokenLock, func() error {
				// Unsynchronized increment; only safe if the lock holds.
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestLockReleasedOnError(t *testing.T) {
	locks := newLockTable()
	boom := errors.New("boom")

	err := locks.withLock(TokenLock, func() error { return boom })
	require.ErrorIs(t, err, boom)

	// The lock must be free again.
	err = locks.withLock(TokenLock, func() error { return nil })
	assert.NoError(t, err)
}

func TestDistinctLockNamesIndependent(t *testing.T) {
	locks := newLockTable()

	release := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = locks.withLock("other", func() error {
			close(acquired)
			<-release
			return nil
		})
	}()

	<-acquired
	// TokenLock is not blocked by "other".
	err := locks.withLock(TokenLock, func() error { return nil })
	assert.NoError(t, err)
	close(release)
}
