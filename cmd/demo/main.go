// Command demo exercises a full authorization-code + OIDC flow against
// an in-process authorization-server double: discovery, a simulated
// authorization (the double issues the code directly), token exchange
// with ID Token validation, introspection, and a Bearer userinfo
// request. It uses neither PAR nor DPoP.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/oidcrp/oidcrp/internal/asdouble"
	"github.com/oidcrp/oidcrp/internal/config"
	"github.com/oidcrp/oidcrp/pkg/clientauth"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/oauthrp"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("loading config: %v", err)
	}

	asKey, err := jose.GenerateECKeyPair(jose.AlgES256, "as-key-1")
	if err != nil {
		log.Fatalf("generating AS signing key: %v", err)
	}
	asKey.MarkExtractable()

	double := asdouble.New("http://127.0.0.1", config.Current.RP.ClientID, asKey)
	server := httptest.NewServer(double.Router())
	defer server.Close()
	double.Issuer = server.URL

	ctx := context.Background()
	client := &http.Client{Timeout: 10 * time.Second}

	as, err := oauthrp.ValidateDiscoveryResponse(ctx, client, double.Issuer, oauthrp.DiscoveryOIDC)
	if err != nil {
		log.Fatalf("discovery: %v", err)
	}
	fmt.Printf("discovered issuer %s (token_endpoint=%s)\n", as.Issuer, as.TokenEndpoint)

	rpClient := &oauthrp.Client{
		ClientID:                config.Current.RP.ClientID,
		ClientSecret:            config.Current.RP.ClientSecret,
		TokenEndpointAuthMethod: clientauth.Method(config.Current.RP.TokenEndpointAuthMethod),
	}

	code, err := double.IssueCode("demo-user", "openid profile", "demo-nonce")
	if err != nil {
		log.Fatalf("issuing authorization code: %v", err)
	}

	keyProvider := func(ctx context.Context, h *jose.Header) (*jose.Key, error) {
		return asKey.PublicJWK(), nil
	}

	req, err := oauthrp.BuildTokenRequest(ctx, as, rpClient, oauthrp.TokenRequestParams{
		GrantType:   oauthrp.GrantAuthorizationCode,
		Code:        code,
		RedirectURI: config.Current.Server.URL() + config.Current.RP.RedirectPath,
	}, nil, nil)
	if err != nil {
		log.Fatalf("building token request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("token request: %v", err)
	}

	tr, err := oauthrp.ValidateAuthorizationCodeOIDCResponse(ctx, resp, as, rpClient, keyProvider, validate.Expect("demo-nonce"), oauthrp.MaxAgeOption{})
	if err != nil {
		log.Fatalf("validating token response: %v", err)
	}
	fmt.Printf("access_token issued, token_type=%s\n", tr.TokenType)

	if claims, ok := oauthrp.GetValidatedIDTokenClaims(tr); ok {
		fmt.Printf("ID Token subject: %v\n", claims["sub"])
	}

	introspectReq, err := oauthrp.BuildIntrospectionRequest(ctx, as, rpClient, tr.AccessToken, false)
	if err != nil {
		log.Fatalf("building introspection request: %v", err)
	}
	introspectResp, err := client.Do(introspectReq)
	if err != nil {
		log.Fatalf("introspection request: %v", err)
	}
	ir, err := oauthrp.ValidateIntrospectionResponse(ctx, introspectResp, as, rpClient, keyProvider)
	if err != nil {
		log.Fatalf("validating introspection response: %v", err)
	}
	fmt.Printf("token active: %v\n", ir.Active)

	userinfoReq, err := oauthrp.BuildProtectedResourceRequest(ctx, http.MethodGet, as.UserinfoEndpoint, tr.AccessToken, nil, nil)
	if err != nil {
		log.Fatalf("building userinfo request: %v", err)
	}
	userinfoResp, err := oauthrp.NoRedirectClient(client).Do(userinfoReq)
	if err != nil {
		log.Fatalf("userinfo request: %v", err)
	}
	ui, err := oauthrp.ValidateUserInfoResponse(ctx, userinfoResp, as, rpClient, keyProvider, validate.ExpectSentinel(validate.SkipSubjectCheck))
	if err != nil {
		log.Fatalf("validating userinfo response: %v", err)
	}
	fmt.Printf("userinfo subject: %s\n", ui.Subject)
}
