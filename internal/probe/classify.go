package probe

import (
	"context"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/pkg/errors"

	"greetprobe/internal/models"
)

// ErrDispatch marks failures that happen outside the network exchange, such as
// an endpoint that cannot be turned into a request or a panic in a worker.
// They are never tolerated.
var ErrDispatch = errors.New("dispatch failure")

// ErrExchange marks failures that happen after the response headers arrived,
// such as a malformed body or a stream reset. They are always tolerated.
var ErrExchange = errors.New("exchange failure")

// exchangeError keeps the underlying cause while matching ErrExchange.
type exchangeError struct {
	err error
}

func (e *exchangeError) Error() string { return "reading response: " + e.err.Error() }

func (e *exchangeError) Unwrap() error { return e.err }

func (e *exchangeError) Is(target error) bool { return target == ErrExchange }

func markExchange(err error) error {
	if err == nil {
		return nil
	}
	return &exchangeError{err: err}
}

// Classify maps the error of a finished dispatch to an outcome kind.
func Classify(err error) models.Kind {
	switch {
	case err == nil:
		return models.Success
	case errors.Is(err, ErrDispatch):
		return models.UnrecognizedFailure
	case errors.Is(err, ErrExchange):
		return models.OtherFailure
	case isConnectError(err):
		return models.ConnectionFailure
	case isExchangeError(err):
		return models.OtherFailure
	default:
		return models.UnrecognizedFailure
	}
}

// isConnectError reports whether err means the connection itself could not be
// established: refused, unreachable, or the host name did not resolve.
func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isExchangeError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded)
}
