package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/identity-host/models"
)

var (
	// ErrPeerUnreachable wraps any transport-level failure: DNS, dial,
	// TLS, or a request timeout. The recipient never saw the call.
	ErrPeerUnreachable = errors.New("peer unreachable")

	// ErrPeerAccessDenied covers 401/403 responses: the recipient saw the
	// call and refused the credential.
	ErrPeerAccessDenied = errors.New("peer denied access")

	// ErrPeerRejected covers 4xx responses other than auth failures.
	ErrPeerRejected = errors.New("peer rejected request")

	// ErrPeerServerError covers 5xx responses.
	ErrPeerServerError = errors.New("peer server error")
)

func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: http %d: %s", ErrPeerAccessDenied, code, body)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrPeerServerError, code, body)
	default:
		return fmt.Errorf("%w: http %d: %s", ErrPeerRejected, code, body)
	}
}

// ClassifyError maps a peer-call error to the delivery outcome recorded in
// transfer history. Transport failures are checked before bare context
// errors: a call cancelled mid-flight still counts as the server not
// responding, while cancellation before any request was made counts as
// processing cancelled.
func ClassifyError(err error) models.TransferResult {
	switch {
	case err == nil:
		return models.TransferResultSuccess
	case errors.Is(err, ErrPeerUnreachable):
		return models.TransferResultRecipientServerNotResponding
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.TransferResultProcessingCancelled
	case errors.Is(err, ErrPeerAccessDenied):
		return models.TransferResultRecipientReturnedAccessDenied
	case errors.Is(err, ErrPeerServerError):
		return models.TransferResultRecipientServerError
	case errors.Is(err, ErrPeerRejected):
		return models.TransferResultRecipientServerRejected
	default:
		return models.TransferResultUnknownError
	}
}

// ClassifyPeerResponse maps the application-level response code of an
// accepted HTTP call to a delivery outcome.
func ClassifyPeerResponse(code models.PeerResponseCode) models.TransferResult {
	switch code {
	case models.PeerResponseAcceptedIntoInbox, models.PeerResponseAcceptedDirectWrite:
		return models.TransferResultSuccess
	case models.PeerResponseQuarantinedSenderNotConnected, models.PeerResponseAccessDenied:
		return models.TransferResultRecipientReturnedAccessDenied
	case models.PeerResponseQuarantinedPayload, models.PeerResponseRejected:
		return models.TransferResultRecipientServerRejected
	default:
		return models.TransferResultUnknownError
	}
}
