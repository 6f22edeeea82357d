package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"drug-info/models"
	"drug-info/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLookup struct {
	ids   map[string][]string
	err   error
	calls atomic.Int32
}

func (f *fakeLookup) FindDrugIDsBySmiles(ctx context.Context, smiles string) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.ids[smiles], nil
}

func newCountingResolver(lookup DrugLookup) *IdentityResolver {
	r := NewIdentityResolver(lookup, NewIdentityCache(), zap.NewNop())
	var n atomic.Int32
	r.Allocate = func() string { return fmt.Sprintf("new-%d", n.Add(1)) }
	return r
}

func TestResolveReusesStoredDrug(t *testing.T) {
	lookup := &fakeLookup{ids: map[string][]string{"CCO": {"stored-1"}}}
	r := newCountingResolver(lookup)

	res, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, Resolution{DrugID: "stored-1"}, res)

	res, err = r.Resolve(context.Background(), DrugCandidate{Smiles: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, Resolution{DrugID: "stored-1", Cached: true}, res)
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestResolveAllocatesAndCachesBeforeCommit(t *testing.T) {
	r := newCountingResolver(&fakeLookup{})

	first, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, Resolution{DrugID: "new-1", Allocated: true}, first)

	second, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", second.DrugID)
	assert.True(t, second.Cached)

	other, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CCN"})
	require.NoError(t, err)
	assert.Equal(t, "new-2", other.DrugID)
	assert.Equal(t, 2, r.Cache.Len())
}

func TestResolveConflict(t *testing.T) {
	r := newCountingResolver(&fakeLookup{ids: map[string][]string{"CCO": {"a", "b"}}})

	_, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CCO"})
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, KindResolutionConflict, recErr.Kind)
	assert.Equal(t, StageResolve, recErr.Stage)

	_, cached := r.Cache.Get("CCO")
	assert.False(t, cached)
}

func TestResolveLookupFailureIsSystemic(t *testing.T) {
	r := newCountingResolver(&fakeLookup{err: errors.New("connection refused")})

	_, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CCO"})
	assert.True(t, IsSystemic(err))
}

func TestResolveConcurrentSameIdentity(t *testing.T) {
	r := NewIdentityResolver(&fakeLookup{}, NewIdentityCache(), zap.NewNop())

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), DrugCandidate{Smiles: "CC(=O)OC1=CC=CC=C1C(=O)O"})
			if err == nil {
				ids[i] = res.DrugID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.NotEmpty(t, id)
		assert.Equal(t, ids[0], id)
	}
}

func TestGormDrugLookup(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, db.Create(&models.Drug{DrugID: "drug-1", Smiles: "CCO"}).Error)

	lookup := &GormDrugLookup{DB: db}
	ids, err := lookup.FindDrugIDsBySmiles(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, []string{"drug-1"}, ids)

	ids, err = lookup.FindDrugIDsBySmiles(context.Background(), "CCN")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
