package customerio

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/getzep/cioexport/pkg/models"
)

// CustomerResolver makes sure a Customer.io profile exists for a distinct ID
// before events are attached to it.
type CustomerResolver struct {
	sender    Sender
	endpoints Endpoints
}

func NewCustomerResolver(sender Sender, endpoints Endpoints) *CustomerResolver {
	return &CustomerResolver{sender: sender, endpoints: endpoints}
}

// Resolve looks the customer up and creates it when Customer.io answers 404.
// Email-shaped IDs are created with an email attribute, anything else with an
// empty body. Resolve is idempotent. A non-2xx final status returns a
// *models.CustomerResolutionError.
func (r *CustomerResolver) Resolve(ctx context.Context, distinctID string, cred Credential) error {
	resp, err := r.sender.Send(
		ctx,
		http.MethodGet,
		r.endpoints.Activities(distinctID),
		cred.headers(),
		nil,
	)
	if err != nil {
		return err
	}

	stage := models.StageActivityCheck
	if resp.StatusCode == http.StatusNotFound {
		stage = models.StageCustomerCreate
		resp, err = r.createCustomer(ctx, distinctID, cred)
		if err != nil {
			return err
		}
	}

	if !resp.OK() {
		return models.NewCustomerResolutionError(distinctID, stage, resp.StatusCode)
	}

	return nil
}

func (r *CustomerResolver) createCustomer(
	ctx context.Context,
	distinctID string,
	cred Credential,
) (*Response, error) {
	identity := ClassifyIdentity(distinctID)
	log.WithFields(logrus.Fields{
		"distinct_id": distinctID,
		"identity":    identity,
	}).Debug("customer not found, creating")

	header := cred.headers()
	var body []byte
	if identity == models.IdentityEmail {
		header.Set("Content-Type", formContentType)
		body = []byte(url.Values{"email": {distinctID}}.Encode())
	}

	return r.sender.Send(ctx, http.MethodPut, r.endpoints.Customer(distinctID), header, body)
}
