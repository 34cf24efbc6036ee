package config

import (
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// loadBrokerCredentials fills the broker credential fields from the
// environment. The Dhan access token is a JWT whose payload carries the
// client id, so an explicit DHAN_CLIENT_ID is only needed when the
// token does not contain one.
func loadBrokerCredentials(b *BrokerConfig) {
	token := os.Getenv("DHAN_ACCESS_TOKEN")
	if token == "" {
		token = os.Getenv("DHAN_API_KEY")
	}
	b.AccessToken = token

	b.ClientID = os.Getenv("DHAN_CLIENT_ID")
	if b.ClientID == "" && token != "" {
		if id, err := ClientIDFromToken(token); err == nil {
			b.ClientID = id
		}
	}
}

// ClientIDFromToken extracts the dhanClientId claim from an access
// token without verifying the signature; the token is the broker's own
// and is only being read, not trusted.
func ClientIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parsing access token: %w", err)
	}
	id, ok := claims["dhanClientId"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("access token has no dhanClientId claim")
	}
	return id, nil
}
