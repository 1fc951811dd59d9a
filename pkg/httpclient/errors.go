package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// remoteError mirrors the httputil error envelope.
type remoteError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// maps it onto the local error taxonomy. service names the remote side in
// messages.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	message := string(body)
	var envelope remoteError
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		message = envelope.Error.Message
	}
	qualified := fmt.Sprintf("%s: %s", service, message)

	switch status := resp.StatusCode; {
	case status == http.StatusNotFound:
		return apperrors.NotFound(service+" resource", message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return fmt.Errorf("%s: %w", qualified, apperrors.ErrAlreadyExists)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Unauthorized(qualified)
	case status >= 500:
		return apperrors.StoreUnavailable(fmt.Errorf("%s returned status %d: %s", service, status, message))
	default:
		return fmt.Errorf("%s returned status %d: %s", service, status, message)
	}
}
