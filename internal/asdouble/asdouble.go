// Package asdouble is an in-process authorization-server double used
// by cmd/demo to exercise pkg/oauthrp's validators end to end without
// a network dependency on a real provider.
package asdouble

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"

	"github.com/oidcrp/oidcrp/pkg/jose"
)

// Double is a minimal, in-memory authorization server: one registered
// client, one authorization code per call to IssueCode, and tokens
// signed with a single EC key.
type Double struct {
	Issuer   string
	ClientID string

	signingKey *jose.Key

	mu                 sync.Mutex
	pushedRequests     map[string]pushedRequest
	authorizationCodes map[string]issuedCode
	refreshTokens      map[string]issuedCode
	activeAccessTokens map[string]bool
}

type pushedRequest struct {
	params map[string]string
}

type issuedCode struct {
	subject string
	scope   string
	nonce   string
}

// New constructs a Double; Router builds its gorilla/mux router. key
// signs access tokens, ID Tokens and the JWT introspection response;
// userinfo is always returned as plain JSON.
func New(issuer, clientID string, key *jose.Key) *Double {
	return &Double{
		Issuer:              issuer,
		ClientID:            clientID,
		signingKey:          key,
		pushedRequests:      map[string]pushedRequest{},
		authorizationCodes:  map[string]issuedCode{},
		refreshTokens:       map[string]issuedCode{},
		activeAccessTokens:  map[string]bool{},
	}
}

// Router builds the mux.Router serving discovery, PAR, token, JWKS,
// introspection, and userinfo.
func (d *Double) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/.well-known/openid-configuration", d.handleDiscovery).Methods(http.MethodGet)
	r.HandleFunc("/par", d.handlePAR).Methods(http.MethodPost)
	r.HandleFunc("/token", d.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/jwks", d.handleJWKS).Methods(http.MethodGet)
	r.HandleFunc("/introspect", d.handleIntrospect).Methods(http.MethodPost)
	r.HandleFunc("/userinfo", d.handleUserinfo).Methods(http.MethodGet, http.MethodPost)
	r.Use(corsMiddleware)
	return r
}

// IssueCode registers an authorization code as if a user had just
// completed the authorization request, for the demo flow to exchange.
func (d *Double) IssueCode(subject, scope, nonce string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	code := id.String()
	d.mu.Lock()
	d.authorizationCodes[code] = issuedCode{subject: subject, scope: scope, nonce: nonce}
	d.mu.Unlock()
	return code, nil
}

func (d *Double) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	metadata := map[string]interface{}{
		"issuer":                                 d.Issuer,
		"authorization_endpoint":                 d.Issuer + "/authorize",
		"token_endpoint":                         d.Issuer + "/token",
		"pushed_authorization_request_endpoint":  d.Issuer + "/par",
		"introspection_endpoint":                 d.Issuer + "/introspect",
		"userinfo_endpoint":                      d.Issuer + "/userinfo",
		"jwks_uri":                               d.Issuer + "/jwks",
		"id_token_signing_alg_values_supported":  []string{string(d.signingKey.Algorithm)},
		"introspection_signing_alg_values_supported": []string{string(d.signingKey.Algorithm)},
		"userinfo_signing_alg_values_supported":  []string{string(d.signingKey.Algorithm)},
	}
	writeJSON(w, http.StatusOK, metadata)
}

func (d *Double) handlePAR(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id, err := uuid.NewV4()
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	requestURI := "urn:ietf:params:oauth:request_uri:" + id.String()

	params := map[string]string{}
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}
	d.mu.Lock()
	d.pushedRequests[requestURI] = pushedRequest{params: params}
	d.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"request_uri": requestURI,
		"expires_in":  60,
	})
}

func (d *Double) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	grantType := r.PostForm.Get("grant_type")
	switch grantType {
	case "authorization_code":
		d.handleAuthorizationCodeGrant(w, r)
	case "refresh_token":
		d.handleRefreshTokenGrant(w, r)
	case "client_credentials":
		d.handleClientCredentialsGrant(w, r)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", grantType)
	}
}

func (d *Double) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request) {
	code := r.PostForm.Get("code")
	d.mu.Lock()
	issued, ok := d.authorizationCodes[code]
	if ok {
		delete(d.authorizationCodes, code)
	}
	d.mu.Unlock()
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "unknown or already-used code")
		return
	}
	d.issueTokenResponse(w, issued)
}

func (d *Double) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.PostForm.Get("refresh_token")
	d.mu.Lock()
	issued, ok := d.refreshTokens[refreshToken]
	d.mu.Unlock()
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "unknown refresh token")
		return
	}
	d.issueTokenResponse(w, issued)
}

func (d *Double) handleClientCredentialsGrant(w http.ResponseWriter, r *http.Request) {
	accessToken := d.signAccessToken("", "client_credentials")
	d.mu.Lock()
	d.activeAccessTokens[accessToken] = true
	d.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (d *Double) issueTokenResponse(w http.ResponseWriter, issued issuedCode) {
	now := time.Now()
	accessToken := d.signAccessToken(issued.subject, issued.scope)

	refreshID, err := uuid.NewV4()
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	refreshToken := refreshID.String()
	d.mu.Lock()
	d.refreshTokens[refreshToken] = issued
	d.activeAccessTokens[accessToken] = true
	d.mu.Unlock()

	idTokenClaims := map[string]interface{}{
		"iss": d.Issuer,
		"aud": d.ClientID,
		"sub": issued.subject,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
	if issued.nonce != "" {
		idTokenClaims["nonce"] = issued.nonce
	}
	idToken, err := d.sign(idTokenClaims, "JWT")
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": refreshToken,
		"scope":         issued.scope,
		"id_token":      idToken,
	})
}

func (d *Double) signAccessToken(subject, scope string) string {
	id, _ := uuid.NewV4()
	token, err := d.sign(map[string]interface{}{
		"iss":   d.Issuer,
		"aud":   d.Issuer,
		"sub":   subject,
		"scope": scope,
		"jti":   id.String(),
		"iat":   time.Now().Unix(),
	}, "at+jwt")
	if err != nil {
		log.Printf("asdouble: signing access token: %v", err)
		return ""
	}
	return token
}

func (d *Double) sign(claims map[string]interface{}, typ string) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return jose.Sign(&jose.Header{Type: typ, KeyID: d.signingKey.KeyID}, payload, d.signingKey)
}

func (d *Double) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys": []*jose.Key{d.signingKey.PublicJWK()},
	})
}

func (d *Double) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	token := r.PostForm.Get("token")
	d.mu.Lock()
	active := d.activeAccessTokens[token]
	d.mu.Unlock()

	body := map[string]interface{}{"active": active}

	if r.Header.Get("Accept") == "application/token-introspection+jwt" {
		now := time.Now()
		jwt, err := d.sign(map[string]interface{}{
			"iss":                 d.Issuer,
			"aud":                 d.ClientID,
			"iat":                 now.Unix(),
			"token_introspection": body,
		}, "token-introspection+jwt")
		if err != nil {
			writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/token-introspection+jwt")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(jwt))
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (d *Double) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sub": "demo-user", "name": "Demo User"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
