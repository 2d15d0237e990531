// Package auth provides VirusTotal API key authentication.
package auth

import "net/http"

// Credentials holds the API key used to authenticate requests.
type Credentials struct {
	APIKey string
}

// Apply adds authentication headers to an HTTP request.
func (c *Credentials) Apply(req *http.Request) {
	if c == nil {
		return
	}
	req.Header.Set("X-Apikey", c.APIKey)
}

// Valid reports whether credentials are configured.
func (c *Credentials) Valid() bool {
	return c != nil && c.APIKey != ""
}
