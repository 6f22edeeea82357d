package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drug-info/models"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const identityCacheShards = 32

// DrugLookup findet bereits gespeicherte Drugs anhand ihres Identitäts-Strings.
type DrugLookup interface {
	FindDrugIDsBySmiles(ctx context.Context, smiles string) ([]string, error)
}

// GormDrugLookup liest committete Drugs aus der Datenbank.
type GormDrugLookup struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func (l *GormDrugLookup) FindDrugIDsBySmiles(ctx context.Context, smiles string) ([]string, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	var ids []string
	err := l.DB.WithContext(ctx).
		Model(&models.Drug{}).
		Where("smiles = ?", smiles).
		Order("drug_id").
		Limit(2).
		Pluck("drug_id", &ids).Error
	return ids, err
}

// IdentityCache ist der laufbezogene Cache Identitäts-String -> drug_id.
// Er ist nach Hash geshardet; pro Shard gibt es genau einen Schreiber zur Zeit.
type IdentityCache struct {
	shards [identityCacheShards]identityShard
}

type identityShard struct {
	mu  sync.Mutex
	ids map[string]string
}

// NewIdentityCache erzeugt einen leeren Cache für einen Lauf.
func NewIdentityCache() *IdentityCache {
	c := &IdentityCache{}
	for i := range c.shards {
		c.shards[i].ids = make(map[string]string)
	}
	return c
}

func (c *IdentityCache) shard(smiles string) *identityShard {
	return &c.shards[xxhash.Sum64String(smiles)%identityCacheShards]
}

// Get liefert eine bereits aufgelöste drug_id.
func (c *IdentityCache) Get(smiles string) (string, bool) {
	s := c.shard(smiles)
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[smiles]
	return id, ok
}

// Len zählt die gecachten Identitäten.
func (c *IdentityCache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.Lock()
		n += len(c.shards[i].ids)
		c.shards[i].mu.Unlock()
	}
	return n
}

// getOrResolve hält den Shard-Lock über Lookup und Allokation, damit zwei Worker mit
// demselben Identitäts-String nie zwei IDs erzeugen.
func (c *IdentityCache) getOrResolve(smiles string, resolve func() (string, bool, error)) (string, bool, bool, error) {
	s := c.shard(smiles)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[smiles]; ok {
		return id, true, false, nil
	}
	id, allocated, err := resolve()
	if err != nil {
		return "", false, false, err
	}
	s.ids[smiles] = id
	return id, false, allocated, nil
}

// Resolution ist das Ergebnis der Identitätsauflösung.
type Resolution struct {
	DrugID    string
	Allocated bool // neue ID in diesem Lauf vergeben
	Cached    bool // aus dem laufbezogenen Cache
}

// IdentityResolver bestimmt die stabile drug_id eines Kandidaten.
type IdentityResolver struct {
	Lookup   DrugLookup
	Cache    *IdentityCache
	Logger   *zap.Logger
	Allocate func() string
}

// NewIdentityResolver erstellt einen Resolver mit UUID-Allokation.
func NewIdentityResolver(lookup DrugLookup, cache *IdentityCache, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		Lookup:   lookup,
		Cache:    cache,
		Logger:   logger,
		Allocate: func() string { return uuid.NewString() },
	}
}

// Resolve sucht zuerst im Lauf-Cache, dann in der Datenbank, und vergibt sonst eine neue ID.
// Die neue ID landet sofort im Cache, nicht erst beim Commit.
func (r *IdentityResolver) Resolve(ctx context.Context, candidate DrugCandidate) (Resolution, error) {
	id, cached, allocated, err := r.Cache.getOrResolve(candidate.Smiles, func() (string, bool, error) {
		ids, err := r.Lookup.FindDrugIDsBySmiles(ctx, candidate.Smiles)
		if err != nil {
			return "", false, &SystemicError{Stage: StageResolve, Err: err}
		}
		switch len(ids) {
		case 0:
			return r.Allocate(), true, nil
		case 1:
			return ids[0], false, nil
		default:
			return "", false, &RecordError{
				Kind:   KindResolutionConflict,
				Stage:  StageResolve,
				Field:  "smiles",
				Reason: fmt.Sprintf("identity string matches %d stored drugs", len(ids)),
			}
		}
	})
	if err != nil {
		return Resolution{}, err
	}

	if allocated {
		r.Logger.Debug("Neue drug_id vergeben", zap.String("drug_id", id), zap.String("smiles", candidate.Smiles))
	}
	return Resolution{DrugID: id, Allocated: allocated, Cached: cached}, nil
}
