package clientauth

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"crypto/sha256"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// NonceStore is a bounded, two-bucket LRU of the last DPoP-Nonce value
// seen per origin, applying a self-correcting rule: every
// response is post-processed for a DPoP-Nonce header, successful or
// not, and the next outgoing proof for that origin picks it up.
type NonceStore struct {
	mu       sync.Mutex
	capacity int
	active   map[string]string
	previous map[string]string
}

// NewNonceStore builds a NonceStore holding up to capacity origins per
// bucket.
func NewNonceStore(capacity int) *NonceStore {
	if capacity <= 0 {
		capacity = 64
	}
	return &NonceStore{
		capacity: capacity,
		active:   make(map[string]string, capacity),
		previous: make(map[string]string),
	}
}

// Observe records nonce (if non-empty) as the latest seen for origin.
func (s *NonceStore) Observe(origin, nonce string) {
	if nonce == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[origin]; !ok && len(s.active) >= s.capacity {
		s.previous = s.active
		s.active = make(map[string]string, s.capacity)
	}
	delete(s.previous, origin)
	s.active[origin] = nonce
}

// Get returns the last nonce observed for origin, if any.
func (s *NonceStore) Get(origin string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.active[origin]; ok {
		return n, true
	}
	if n, ok := s.previous[origin]; ok {
		s.active[origin] = n
		delete(s.previous, origin)
		return n, true
	}
	return "", false
}

// ProofOptions configures one DPoP proof JWT.
type ProofOptions struct {
	// Key signs the proof; Key.Algorithm selects the JWS alg.
	Key *jose.Key
	// PublicKey, if set, is published in the proof's jwk header instead
	// of a public JWK derived from Key; callers that hold Key and
	// PublicKey as a separately validated pair (oauthrp.DPoPOptions) use
	// this to ensure the published key is the one that was validated,
	// not merely Key's own public half.
	PublicKey *jose.Key
	// Method and URL identify the request the proof binds to.
	Method string
	URL    string
	// NonceOverride, if non-empty, is used instead of the cached nonce
	// for the request's origin.
	NonceOverride string
	// AccessToken, if non-empty, triggers the ath claim (used when
	// authorizing a protected resource with DPoP-bound access tokens).
	AccessToken string
}

// BuildProof constructs a fresh compact DPoP proof JWT. store may be
// nil (no nonce lookup, e.g. for the first request to a new origin).
func BuildProof(opts ProofOptions, store *NonceStore) (string, error) {
	if opts.Key == nil || !opts.Key.HasPrivateKey() {
		return "", rperr.NewArgumentError("key", "DPoP proof requires a private signing key")
	}
	if !opts.Key.Extractable() {
		return "", rperr.NewUnsupportedOperationError("DPoP key's public half must be marked extractable")
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return "", rperr.WrapProcessingError(err, "invalid_url", "malformed DPoP target URL")
	}
	htu := u.Scheme + "://" + u.Host + u.Path

	jti, err := GenerateJTI()
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"iat": time.Now().Unix(),
		"jti": jti,
		"htm": opts.Method,
		"htu": htu,
	}

	nonce := opts.NonceOverride
	if nonce == "" && store != nil {
		nonce, _ = store.Get(u.Scheme + "://" + u.Host)
	}
	if nonce != "" {
		payload["nonce"] = nonce
	}
	if opts.AccessToken != "" {
		sum := sha256.Sum256([]byte(opts.AccessToken))
		payload["ath"] = codec.EncodeToString(sum[:])
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	pub := opts.PublicKey
	if pub == nil {
		pub = opts.Key.PublicJWK()
	}
	header := &jose.Header{
		Type: "dpop+jwt",
		JWK:  pub,
	}
	return jose.Sign(header, payloadJSON, opts.Key)
}

// ObserveResponseNonce updates store from a response's DPoP-Nonce
// header value (empty if absent), for the origin the request targeted.
func ObserveResponseNonce(store *NonceStore, requestURL, dpopNonceHeader string) {
	if store == nil || dpopNonceHeader == "" {
		return
	}
	u, err := url.Parse(requestURL)
	if err != nil {
		return
	}
	store.Observe(u.Scheme+"://"+u.Host, dpopNonceHeader)
}
