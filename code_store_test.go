package authcore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/authcore"
)

func TestCodeStorePutThenVerifyConsumesEntry(t *testing.T) {
	store := authcore.NewCodeStore()

	code, err := store.Put("a@x.com", authcore.PurposeRegistration, "payload")
	require.NoError(t, err)
	require.Len(t, code, authcore.CodeLength)

	payload, err := store.Verify("a@x.com", authcore.PurposeRegistration, code)
	require.NoError(t, err)
	assert.Equal(t, "payload", payload)

	// entry was consumed; the same code is gone
	_, err = store.Verify("a@x.com", authcore.PurposeRegistration, code)
	assert.ErrorIs(t, err, authcore.ErrCodeNotFound)
}

func TestCodeStoreVerifyUnknownEmail(t *testing.T) {
	store := authcore.NewCodeStore()

	_, err := store.Verify("nobody@x.com", authcore.PurposeRegistration, "123456")
	assert.ErrorIs(t, err, authcore.ErrCodeNotFound)
}

func TestCodeStorePutReplacesAcrossPurposes(t *testing.T) {
	store := authcore.NewCodeStore(authcore.WithStoreGenerator(&stubGenerator{codes: []string{"111111", "222222"}}))

	first, err := store.Put("a@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	_, err = store.Put("a@x.com", authcore.PurposePasswordReset, nil)
	require.NoError(t, err)

	// the registration code was superseded; it can never verify again
	_, err = store.Verify("a@x.com", authcore.PurposeRegistration, first)
	assert.ErrorIs(t, err, authcore.ErrPurposeMismatch)

	_, err = store.Verify("a@x.com", authcore.PurposePasswordReset, first)
	assert.ErrorIs(t, err, authcore.ErrCodeMismatch)
}

func TestCodeStorePurposeMismatchRetainsEntry(t *testing.T) {
	store := authcore.NewCodeStore()

	code, err := store.Put("a@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	_, err = store.Verify("a@x.com", authcore.PurposePasswordReset, code)
	require.ErrorIs(t, err, authcore.ErrPurposeMismatch)

	// the entry survives a mismatched-purpose probe
	payload, err := store.Verify("a@x.com", authcore.PurposeRegistration, code)
	require.NoError(t, err)
	assert.Equal(t, "fields", payload)
}

func TestCodeStoreExpiryDeletesEntry(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := authcore.NewCodeStore(authcore.WithStoreClock(clock.Now))

	code, err := store.Put("a@x.com", authcore.PurposePasswordReset, nil)
	require.NoError(t, err)

	clock.Advance(authcore.DefaultCodeTTL + time.Second)

	_, err = store.Verify("a@x.com", authcore.PurposePasswordReset, code)
	require.ErrorIs(t, err, authcore.ErrCodeExpired)

	// expired entries are not retained
	_, err = store.Verify("a@x.com", authcore.PurposePasswordReset, code)
	assert.ErrorIs(t, err, authcore.ErrCodeNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestCodeStoreVerifyAtBoundaryStillValid(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := authcore.NewCodeStore(authcore.WithStoreClock(clock.Now))

	code, err := store.Put("a@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	// exactly at expires_at the entry is still valid; only now > expires_at fails
	clock.Advance(authcore.DefaultCodeTTL)

	_, err = store.Verify("a@x.com", authcore.PurposeRegistration, code)
	assert.NoError(t, err)
}

func TestCodeStoreMismatchRetainsEntry(t *testing.T) {
	store := authcore.NewCodeStore(authcore.WithStoreGenerator(&stubGenerator{codes: []string{"111111"}}))

	code, err := store.Put("a@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)
	require.Equal(t, "111111", code)

	_, err = store.Verify("a@x.com", authcore.PurposeRegistration, "222222")
	require.ErrorIs(t, err, authcore.ErrCodeMismatch)

	// retry with the correct code still succeeds within the window
	payload, err := store.Verify("a@x.com", authcore.PurposeRegistration, code)
	require.NoError(t, err)
	assert.Equal(t, "fields", payload)
}

func TestCodeStoreReissueKeepsPayloadInvalidatesOldCode(t *testing.T) {
	gen := &stubGenerator{codes: []string{"111111", "222222"}}
	store := authcore.NewCodeStore(authcore.WithStoreGenerator(gen))

	first, err := store.Put("a@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	second, err := store.Reissue("a@x.com", authcore.PurposeRegistration)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = store.Verify("a@x.com", authcore.PurposeRegistration, first)
	require.ErrorIs(t, err, authcore.ErrCodeMismatch)

	payload, err := store.Verify("a@x.com", authcore.PurposeRegistration, second)
	require.NoError(t, err)
	assert.Equal(t, "fields", payload)
}

func TestCodeStoreReissueRestartsWindow(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := authcore.NewCodeStore(authcore.WithStoreClock(clock.Now))

	_, err := store.Put("a@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)

	code, err := store.Reissue("a@x.com", authcore.PurposeRegistration)
	require.NoError(t, err)

	// nine more minutes would have expired the original window
	clock.Advance(9 * time.Minute)

	payload, err := store.Verify("a@x.com", authcore.PurposeRegistration, code)
	require.NoError(t, err)
	assert.Equal(t, "fields", payload)
}

func TestCodeStoreReissueWithoutEntry(t *testing.T) {
	store := authcore.NewCodeStore()

	_, err := store.Reissue("nobody@x.com", authcore.PurposeRegistration)
	assert.ErrorIs(t, err, authcore.ErrCodeNotFound)
}

func TestCodeStorePutRejectsBadInput(t *testing.T) {
	store := authcore.NewCodeStore()

	_, err := store.Put("", authcore.PurposeRegistration, nil)
	assert.Error(t, err)

	_, err = store.Put("a@x.com", authcore.Purpose("other"), nil)
	assert.Error(t, err)
}

func TestCodeStoreEmailKeyIsNormalized(t *testing.T) {
	store := authcore.NewCodeStore()

	code, err := store.Put("  A@X.com ", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	payload, err := store.Verify("a@x.com", authcore.PurposeRegistration, code)
	require.NoError(t, err)
	assert.Equal(t, "fields", payload)
}

func TestCodeStoreSweepRemovesOnlyExpired(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := authcore.NewCodeStore(authcore.WithStoreClock(clock.Now))

	_, err := store.Put("old@x.com", authcore.PurposeRegistration, nil)
	require.NoError(t, err)

	clock.Advance(authcore.DefaultCodeTTL + time.Second)

	fresh, err := store.Put("fresh@x.com", authcore.PurposePasswordReset, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err = store.Verify("fresh@x.com", authcore.PurposePasswordReset, fresh)
	assert.NoError(t, err)
}

func TestCodeStoreSweeperStopsOnCancel(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := authcore.NewCodeStore(authcore.WithStoreClock(clock.Now))

	_, err := store.Put("a@x.com", authcore.PurposeRegistration, nil)
	require.NoError(t, err)
	clock.Advance(authcore.DefaultCodeTTL + time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	store.StartSweeper(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
}

func TestCodeStoreConcurrentSameEmail(t *testing.T) {
	store := authcore.NewCodeStore()

	code, err := store.Put("race@x.com", authcore.PurposeRegistration, "fields")
	require.NoError(t, err)

	var wg sync.WaitGroup
	successes := make(chan struct{}, 64)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Verify("race@x.com", authcore.PurposeRegistration, code); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	// single-use: at most one concurrent verifier may win
	assert.LessOrEqual(t, count, 1)
}

func TestCodeStoreConcurrentDistinctEmails(t *testing.T) {
	store := authcore.NewCodeStore()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	var wg sync.WaitGroup

	for _, email := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				code, err := store.Put(email, authcore.PurposeRegistration, email)
				assert.NoError(t, err)
				payload, err := store.Verify(email, authcore.PurposeRegistration, code)
				assert.NoError(t, err)
				assert.Equal(t, email, payload)
			}
		}(email)
	}
	wg.Wait()

	assert.Equal(t, 0, store.Len())
}
