package errortypes

// DefaultRefreshTimeMillis is the refresh hint attached to structural parse failures when the
// server did not supply one.
const DefaultRefreshTimeMillis = 30000

// RefreshHinter is implemented by errors which tell the caller when the next top-level ad request
// should be attempted.
type RefreshHinter interface {
	RefreshTimeMillis() *int
}

// ReadRefreshTime returns the refresh hint carried by err, if any.
func ReadRefreshTime(err error) (int, bool) {
	if h, ok := err.(RefreshHinter); ok {
		if r := h.RefreshTimeMillis(); r != nil {
			return *r, true
		}
	}
	return 0, false
}

// WithRefreshTime sets refresh on a BadBody or BadHeaderData error which carries no hint yet.
// Other errors are returned unchanged.
func WithRefreshTime(err error, refresh *int) error {
	if refresh == nil {
		return err
	}
	switch e := err.(type) {
	case *BadBody:
		if e.Refresh == nil {
			e.Refresh = refresh
		}
	case *BadHeaderData:
		if e.Refresh == nil {
			e.Refresh = refresh
		}
	}
	return err
}

// IsNetworkError returns true if err was produced by the transport rather than by parsing.
func IsNetworkError(err error) bool {
	switch ReadCode(err) {
	case TimeoutErrorCode, ConnectionFailureErrorCode, BadServerResponseErrorCode:
		return true
	}
	return false
}
