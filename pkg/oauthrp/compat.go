package oauthrp

import (
	"time"

	"golang.org/x/oauth2"
)

// ToOAuth2Config converts an AuthorizationServer + Client into a
// golang.org/x/oauth2.Config, letting callers already invested in the
// stdlib ecosystem's token type adopt this core incrementally once
// discovery and client authentication are handled here.
func ToOAuth2Config(as *AuthorizationServer, client *Client, redirectURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  as.AuthorizationEndpoint,
			TokenURL: as.TokenEndpoint,
		},
		RedirectURL: redirectURL,
		Scopes:      scopes,
	}
}

// FromOAuth2Token converts a golang.org/x/oauth2.Token into the
// normalized TokenResponse shape this core's validators and ID-Token
// side-mapping operate on.
func FromOAuth2Token(tok *oauth2.Token) *TokenResponse {
	tr := &TokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Raw:          map[string]interface{}{},
	}
	if !tok.Expiry.IsZero() {
		tr.ExpiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		tr.IDToken = idToken
	}
	return tr
}
