package spinlock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestExclusiveUnlockRestoresZero checks invariant #10 from the testable
// properties: lock/unlock and lock_upgrade/unlock always restore flag == 0.
func TestExclusiveUnlockRestoresZero(t *testing.T) {
	t.Parallel()

	var s SharedSpinlock
	s.Lock()
	require.Equal(t, exclusive, s.flag.Load())
	s.Unlock()
	require.Equal(t, int32(0), s.flag.Load())

	s.RLock()
	s.UpgradeLock()
	require.Equal(t, exclusive, s.flag.Load())
	s.Unlock()
	require.Equal(t, int32(0), s.flag.Load())
}

// TestSharedHoldersNeverNegative exercises a random sequence of shared
// acquire/release operations and asserts the flag always equals the number
// of outstanding shared holders, and never goes negative (never looks like
// an exclusive holder) while any shared holder is outstanding.
func TestSharedHoldersNeverNegative(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		var s SharedSpinlock
		outstanding := 0

		steps := rapid.IntRange(1, 64).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if outstanding == 0 || rapid.Bool().Draw(t, "acquire") {
				s.RLock()
				outstanding++
			} else {
				s.RUnlock()
				outstanding--
			}

			require.GreaterOrEqual(t, outstanding, 0)
			require.Equal(t, int32(outstanding), s.flag.Load())
		}

		for ; outstanding > 0; outstanding-- {
			s.RUnlock()
		}
		require.Equal(t, int32(0), s.flag.Load())
	})
}

// TestTryLockMutualExclusion checks that TryLock and TryRLock never both
// succeed at once.
func TestTryLockMutualExclusion(t *testing.T) {
	t.Parallel()

	var s SharedSpinlock
	require.True(t, s.TryLock())
	require.False(t, s.TryRLock())
	require.False(t, s.TryLock())
	s.Unlock()

	require.True(t, s.TryRLock())
	require.False(t, s.TryLock())
	s.RUnlock()
}
