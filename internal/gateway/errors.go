package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned by CheckAvailable when the controller does not
// answer with the expected greeting.
var ErrUnavailable = errors.New("clash API is not available")

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	// KindTransport means the request never got an HTTP response.
	KindTransport ErrorKind = iota
	// KindStatus means the daemon answered with a non-2xx status.
	KindStatus
	// KindDecode means the response body was not the expected JSON.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError describes a failed controller request.
type RequestError struct {
	Kind       ErrorKind
	Method     string
	Path       string
	StatusCode int    // set for KindStatus
	Body       string // truncated response body, set for KindStatus; Error() prints it on one line
	Err        error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Body != "" {
			return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, strings.Join(strings.Fields(e.Body), " "))
		}
		return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s %s: invalid response: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a RequestError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind == kind
	}
	return false
}
