package oauthrp

import (
	"context"
	"net/http"

	"github.com/oidcrp/oidcrp/pkg/clientauth"
)

// NoRedirectClient wraps base (http.DefaultClient if nil) so it never
// follows a redirect automatically, matching the protected-resource
// request's redirect: manual requirement.
func NoRedirectClient(base *http.Client) *http.Client {
	var wrapped http.Client
	if base != nil {
		wrapped = *base
	} else {
		wrapped = *http.DefaultClient
	}
	wrapped.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &wrapped
}

// BuildProtectedResourceRequest builds a request authorized with
// accessToken: a plain Bearer header if dpop is nil, or a DPoP-bound
// proof (with ath set) and "Authorization: DPoP <token>" otherwise.
func BuildProtectedResourceRequest(ctx context.Context, method, resourceURL, accessToken string, dpop *DPoPOptions, nonceStore *clientauth.NonceStore) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, resourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", libraryUserAgent)

	if dpop == nil {
		req.Header.Set("Authorization", "Bearer "+accessToken)
		return req, nil
	}

	if err := dpop.Validate(); err != nil {
		return nil, err
	}
	proof, err := clientauth.BuildProof(clientauth.ProofOptions{
		Key:           dpop.PrivateKey,
		PublicKey:     dpop.PublicKey,
		Method:        method,
		URL:           resourceURL,
		NonceOverride: dpop.NonceOverride,
		AccessToken:   accessToken,
	}, nonceStore)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "DPoP "+accessToken)
	req.Header.Set("DPoP", proof)
	return req, nil
}

// RecordResourceResponseNonce pipes resp's DPoP-Nonce header (if any)
// through the nonce recorder for resourceURL's origin.
func RecordResourceResponseNonce(store *clientauth.NonceStore, resourceURL string, resp *http.Response) {
	clientauth.ObserveResponseNonce(store, resourceURL, resp.Header.Get("DPoP-Nonce"))
}
