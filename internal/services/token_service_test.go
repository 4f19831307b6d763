package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

var fixedNow = time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)

func newTestTokenService(store TokenStore) *TokenService {
	svc := NewTokenService(store, 0)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestIssueStoresHashOnly(t *testing.T) {
	store := newMemStore()
	svc := newTestTokenService(store)

	tok, err := svc.Issue(context.Background(), IssueRequest{ResourceID: "cs-1", Email: "a@b.de", Name: "A"})
	require.NoError(t, err)
	assert.Len(t, tok.Token, 32)
	assert.Equal(t, HashToken(tok.Token), tok.TokenHash)
	assert.Equal(t, fixedNow.Add(DefaultTokenTTL), tok.ExpiresAt)

	stored, err := store.GetTokenByHash(context.Background(), tok.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Token)
	assert.Equal(t, "cs-1", stored.ResourceID)
}

func TestIssueTokensAreDistinct(t *testing.T) {
	svc := newTestTokenService(newMemStore())
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := svc.Issue(context.Background(), IssueRequest{ResourceID: "cs-1", Email: "a@b.de"})
		require.NoError(t, err)
		assert.False(t, seen[tok.Token])
		seen[tok.Token] = true
	}
}

func TestIssueRetriesOnDuplicate(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.InsertToken(context.Background(), &models.UnlockToken{TokenHash: HashToken("dup"), ResourceID: "cs-1"}))
	svc := newTestTokenService(store)
	values := []string{"dup", "fresh"}
	svc.newToken = func() string {
		v := values[0]
		values = values[1:]
		return v
	}

	tok, err := svc.Issue(context.Background(), IssueRequest{ResourceID: "cs-1"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.Token)
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.InsertToken(context.Background(), &models.UnlockToken{TokenHash: HashToken("dup"), ResourceID: "cs-1"}))
	svc := newTestTokenService(store)
	svc.newToken = func() string { return "dup" }

	_, err := svc.Issue(context.Background(), IssueRequest{ResourceID: "cs-1"})
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestVerifyOutcomes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestTokenService(store)
	tok, err := svc.Issue(ctx, IssueRequest{ResourceID: "cs-1", Email: "a@b.de"})
	require.NoError(t, err)

	out, err := svc.Verify(ctx, "nope", "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, out)

	out, err = svc.Verify(ctx, "", "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, out)

	out, err = svc.Verify(ctx, tok.Token, "cs-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResourceMismatch, out)

	out, err = svc.Verify(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnlocked, out)

	out, err = svc.Verify(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConsumed, out)

	// a consumed token presented for another resource is still a mismatch
	out, err = svc.Verify(ctx, tok.Token, "cs-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResourceMismatch, out)
}

func TestVerifyExpired(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestTokenService(store)
	tok, err := svc.Issue(ctx, IssueRequest{ResourceID: "cs-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return fixedNow.Add(DefaultTokenTTL) }
	out, err := svc.Verify(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, out)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	out, err = svc.Verify(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, out)
}

func TestConcurrentVerifyUnlocksOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(newMemStore())
	tok, err := svc.Issue(ctx, IssueRequest{ResourceID: "cs-1"})
	require.NoError(t, err)

	const n = 16
	outcomes := make(chan VerifyOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Verify(ctx, tok.Token, "cs-1")
			if err == nil {
				outcomes <- out
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[VerifyOutcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[OutcomeUnlocked])
	assert.Equal(t, n-1, counts[OutcomeAlreadyConsumed])
}

func TestLookupDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(newMemStore())
	tok, err := svc.Issue(ctx, IssueRequest{ResourceID: "cs-1"})
	require.NoError(t, err)

	out, err := svc.Lookup(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnlocked, out)

	out, err = svc.Verify(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnlocked, out)

	out, err = svc.Lookup(ctx, tok.Token, "cs-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConsumed, out)
}

type failingTokenStore struct{ *memStore }

func (failingTokenStore) ConsumeToken(context.Context, string, string, time.Time) (bool, error) {
	return false, errors.New("db down")
}

func TestVerifyPropagatesStoreErrors(t *testing.T) {
	svc := newTestTokenService(failingTokenStore{newMemStore()})
	_, err := svc.Verify(context.Background(), "tok", "cs-1")
	assert.Error(t, err)
}
