package urlutil

import (
	"net/url"

	"github.com/pkg/errors"
)

// RequestIDParam is the query parameter carrying the probe correlation tag.
const RequestIDParam = "request_id"

// WithRequestID returns endpoint with the request_id query parameter set to id.
// Existing query parameters and the path are preserved; the fragment is dropped
// since it is never sent on the wire.
func WithRequestID(endpoint, id string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.WithMessage(err, "failed to parse endpoint")
	}

	// Must be an absolute URL with an HTTP scheme
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.Errorf("endpoint %q must be an absolute http or https url", endpoint)
	}

	q := u.Query()
	q.Set(RequestIDParam, id)
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String(), nil
}
