package errortypes

// Defines numeric codes for well-known errors.
const (
	UnknownErrorCode = 999
	TimeoutErrorCode = iota
	BadInputErrorCode
	BadBodyErrorCode
	BadHeaderDataErrorCode
	NoFillErrorCode
	WarmingUpErrorCode
	ConnectionFailureErrorCode
	BadServerResponseErrorCode
)

// Defines numeric codes for well-known warnings.
const (
	UnknownWarningCode            = 10999
	MalformedCandidateWarningCode = iota + 10000
	InvalidConsentStringWarningCode
)

// Coder provides an error or warning code with severity.
type Coder interface {
	Code() int
	Severity() Severity
}

// ReadCode returns the error or warning code, or UnknownErrorCode if unavailable.
func ReadCode(err error) int {
	if e, ok := err.(Coder); ok {
		return e.Code()
	}
	return UnknownErrorCode
}

// CodeName returns the wire name of a well-known error code. It is what the loader sends back to
// the ad server as the previous error of a waterfall position and what the admin surface reports.
func CodeName(code int) string {
	switch code {
	case TimeoutErrorCode:
		return "NETWORK_TIMEOUT"
	case BadInputErrorCode:
		return "BAD_INPUT"
	case BadBodyErrorCode:
		return "BAD_BODY"
	case BadHeaderDataErrorCode:
		return "BAD_HEADER_DATA"
	case NoFillErrorCode:
		return "NO_FILL"
	case WarmingUpErrorCode:
		return "WARMING_UP"
	case ConnectionFailureErrorCode:
		return "NETWORK_CONNECTION_FAILURE"
	case BadServerResponseErrorCode:
		return "NETWORK_BAD_SERVER_RESPONSE"
	case MalformedCandidateWarningCode:
		return "MALFORMED_CANDIDATE"
	case InvalidConsentStringWarningCode:
		return "INVALID_CONSENT_STRING"
	}
	return "UNKNOWN"
}
