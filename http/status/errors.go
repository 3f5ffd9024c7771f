package status

import "errors"

// HTTPError is an error carrying the status code it must be answered with.
// All the errors produced by the pipeline itself are of this type, so any
// collaborator may map them back to a response without string matching.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	// ErrCloseConnection is a signal rather than an error: the connection must
	// be terminated without any further writes.
	ErrCloseConnection = NewError(CloseConnection, "actively closing the connection")

	ErrBadRequest           = NewError(BadRequest, "bad request")
	ErrUnsatisfiedInput     = NewError(BadRequest, "required input could not be satisfied")
	ErrNotFound             = NewError(NotFound, "not found")
	ErrMethodNotAllowed     = NewError(MethodNotAllowed, "method not allowed")
	ErrUnsupportedMediaType = NewError(UnsupportedMediaType, "unsupported media type")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "request body is too large")
	ErrInternalServerError  = NewError(InternalServerError, "internal server error")
	ErrNotImplemented       = NewError(NotImplemented, "not implemented")
	ErrRequestTimeout       = NewError(RequestTimeout, "request timeout")
	ErrUnprocessableEntity  = NewError(UnprocessableEntity, "unprocessable entity")
	ErrServiceUnavailable   = NewError(ServiceUnavailable, "service unavailable")
	ErrNotAcceptable        = NewError(NotAcceptable, "not acceptable")
	ErrUnauthorized         = NewError(Unauthorized, "unauthorized")
	ErrForbidden            = NewError(Forbidden, "forbidden")
	ErrPreconditionFailed   = NewError(PreconditionFailed, "precondition failed")
	ErrTooManyRequests      = NewError(TooManyRequests, "too many requests")
)

// CloseConnection is a special internal code which should never appear on
// the wire.
const CloseConnection Code = 1000

// CodeOf extracts the status code from an error, unwrapping if necessary
// and falling back to 500 Internal Server Error for non-HTTP errors.
func CodeOf(err error) Code {
	var http HTTPError
	if errors.As(err, &http) {
		return http.Code
	}

	return InternalServerError
}
