package jwkset

import (
	"context"
	"errors"
	"time"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// Resolver fetches, selects from, and caches the JWKS published at
// jwks_uri endpoints, implementing jose.KeyProvider's contract for the
// validation pipeline in pkg/validate.
type Resolver struct {
	cache *Cache
	doer  Doer
}

// NewResolver builds a Resolver with the given cache capacity (JWKS
// documents per bucket) and Doer. A nil doer defaults to resty.
func NewResolver(capacity int, doer Doer) *Resolver {
	if doer == nil {
		doer = NewRestyDoer()
	}
	return &Resolver{cache: NewCache(capacity), doer: doer}
}

// Resolve returns the single key from jwksURI's key set that matches
// header's alg/kid. On a cache miss it fetches; on a
// hit it uses the cached set; if the candidate list is empty (no key
// matches, as opposed to an ambiguous multi-key match or a fetch
// failure) and the cached set is stale, it evicts and retries exactly
// once.
func (r *Resolver) Resolve(ctx context.Context, jwksURI string, header *jose.Header) (*jose.Key, error) {
	key, err := r.resolveOnce(ctx, jwksURI, header)
	if err == nil {
		return key, nil
	}
	if !isNoApplicableKeys(err) || !r.staleMiss(jwksURI) {
		return nil, err
	}
	r.cache.evict(jwksURI)
	return r.resolveOnce(ctx, jwksURI, header)
}

// isNoApplicableKeys reports whether err is the zero-candidate
// selection outcome, the only one that warrants a retry against a
// stale cache entry.
func isNoApplicableKeys(err error) bool {
	var pe *rperr.ProcessingError
	return errors.As(err, &pe) && pe.Code == codeNoApplicableKeys
}

func (r *Resolver) resolveOnce(ctx context.Context, jwksURI string, header *jose.Header) (*jose.Key, error) {
	set, err := r.loadSet(ctx, jwksURI)
	if err != nil {
		return nil, err
	}
	candidates := selectCandidates(set, header.Algorithm, header.KeyID)
	return resolveOne(candidates, header.Algorithm)
}

// staleMiss reports whether jwksURI's cached entry (if any) is past
// the staleness window, the precondition for a one-shot evict+retry.
func (r *Resolver) staleMiss(jwksURI string) bool {
	e, ok := r.cache.get(jwksURI)
	if !ok {
		return false
	}
	return e.stale(time.Now())
}

func (r *Resolver) loadSet(ctx context.Context, jwksURI string) (*jose.KeySet, error) {
	if e, ok := r.cache.get(jwksURI); ok {
		return e.set, nil
	}
	set, err := fetchKeySet(ctx, r.doer, jwksURI)
	if err != nil {
		return nil, err
	}
	r.cache.put(jwksURI, &entry{set: set, iat: time.Now()})
	return set, nil
}
