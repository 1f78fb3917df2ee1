package trading

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/normalize"
)

// ProviderError is an expected failure of a single provider call: a rejected
// request, an authentication failure or a transport error.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Translate reduces a provider failure to the message front-ends display.
// The provider's own text is kept verbatim.
func Translate(err *ProviderError) domain.ErrorValue {
	return domain.ErrorValue{Message: err.Message}
}

// classify splits a provider call failure into a ProviderError or, when the
// response could not be decoded, a normalization error.
func classify(op, entity string, err error) (*ProviderError, error) {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &ProviderError{
			Op:         op,
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
			Message:    msg,
			Err:        err,
		}, nil
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Op: op, Message: err.Error(), Err: err}, nil
	}

	return nil, normalize.Decode(entity, err)
}
