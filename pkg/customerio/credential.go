package customerio

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/getzep/cioexport/pkg/models"
)

// Credential is the Basic authorization header derived from the site ID and
// API token. It is built once and only ever read afterwards.
type Credential struct {
	header string
}

// NewCredential encodes siteID:token as a Basic authorization value.
func NewCredential(siteID, token string) Credential {
	encoded := base64.StdEncoding.EncodeToString([]byte(siteID + ":" + token))
	return Credential{header: "Basic " + encoded}
}

// Header returns the Authorization header value.
func (c Credential) Header() string {
	return c.header
}

// IsZero reports whether c was never built by NewCredential.
func (c Credential) IsZero() bool {
	return c.header == ""
}

// headers returns a fresh header set carrying only the credential.
func (c Credential) headers() http.Header {
	h := make(http.Header)
	h.Set("Authorization", c.header)
	return h
}

// Bootstrap builds the Credential and checks it against Customer.io's
// diagnostic endpoint. A non-2xx status yields a *models.ConnectivityError;
// no export may start after either kind of failure.
func Bootstrap(
	ctx context.Context,
	sender Sender,
	endpoints Endpoints,
	siteID, token string,
) (Credential, error) {
	cred := NewCredential(siteID, token)

	resp, err := sender.Send(ctx, http.MethodGet, endpoints.IPAddresses(), cred.headers(), nil)
	if err != nil {
		return Credential{}, fmt.Errorf("connectivity check: %w", err)
	}

	if !resp.OK() {
		return Credential{}, models.NewConnectivityError(resp.StatusCode)
	}

	log.Info("Connected to Customer.io")

	return cred, nil
}
