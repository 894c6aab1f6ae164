package jwkset

import (
	"context"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
	resty "gopkg.in/resty.v1"
)

// acceptHeader is sent on every JWKS fetch: providers
// may serve either the generic JSON media type or the dedicated
// application/jwk-set+json one.
const acceptHeader = "application/json, application/jwk-set+json"

// Doer performs the single GET a JWKS fetch issues. Tests substitute a
// stub; production callers get the resty-backed default.
type Doer interface {
	Get(jwksURI string) (status int, body []byte, err error)
}

// restyDoer is the default Doer, backed by gopkg.in/resty.v1.
type restyDoer struct {
	client *resty.Client
}

// NewRestyDoer builds the default resty-backed Doer.
func NewRestyDoer() Doer {
	client := resty.New()
	client.SetHeader("Accept", acceptHeader)
	return &restyDoer{client: client}
}

func (d *restyDoer) Get(jwksURI string) (int, []byte, error) {
	resp, err := d.client.R().Get(jwksURI)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode(), resp.Body(), nil
}

type fetchResult struct {
	status int
	body   []byte
	err    error
}

// fetchKeySet issues the GET and decodes the response body as a JWKS
// document, honoring ctx cancellation even though Doer itself is
// synchronous.
func fetchKeySet(ctx context.Context, doer Doer, jwksURI string) (*jose.KeySet, error) {
	ch := make(chan fetchResult, 1)
	go func() {
		status, body, err := doer.Get(jwksURI)
		ch <- fetchResult{status: status, body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, rperr.WrapProcessingError(r.err, "jwks_fetch_failed", "failed to fetch %s", jwksURI)
		}
		if r.status != 200 {
			return nil, rperr.NewProcessingError("jwks_fetch_failed", "unexpected status %d fetching %s", r.status, jwksURI)
		}
		return jose.DecodeKeySet(r.body)
	}
}
