package errortypes

import "fmt"

// Timeout should be used to flag that the ad server did not answer before the network queue's
// per-attempt deadline expired, once every retry has been spent.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityFatal
}

// BadInput should be used when returning errors which are caused by bad caller input or bad
// configuration. It should _not_ be used for anything the ad server sent back.
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// BadBody should be used when the response body is empty, is not JSON, or a candidate's content has
// the wrong shape for its ad type.
type BadBody struct {
	Message string
	Refresh *int
}

func (err *BadBody) Error() string {
	return err.Message
}

func (err *BadBody) Code() int {
	return BadBodyErrorCode
}

func (err *BadBody) Severity() Severity {
	return SeverityFatal
}

func (err *BadBody) RefreshTimeMillis() *int {
	return err.Refresh
}

// BadHeaderData should be used when the candidate list is missing or is not an array, or when a
// mandatory per-candidate field is absent or mistyped.
type BadHeaderData struct {
	Message string
	Refresh *int
}

func (err *BadHeaderData) Error() string {
	return err.Message
}

func (err *BadHeaderData) Code() int {
	return BadHeaderDataErrorCode
}

func (err *BadHeaderData) Severity() Severity {
	return SeverityFatal
}

func (err *BadHeaderData) RefreshTimeMillis() *int {
	return err.Refresh
}

// NoFill is raised when the ad server explicitly answered with the "clear" sentinel.
type NoFill struct {
	Message string
	Refresh *int
}

func (err *NoFill) Error() string {
	return err.Message
}

func (err *NoFill) Code() int {
	return NoFillErrorCode
}

func (err *NoFill) Severity() Severity {
	return SeverityFatal
}

func (err *NoFill) RefreshTimeMillis() *int {
	return err.Refresh
}

// WarmingUp is raised when the ad unit is still warming up on the ad server. Callers should back off
// until the refresh hint expires.
type WarmingUp struct {
	Message string
	Refresh *int
}

func (err *WarmingUp) Error() string {
	return err.Message
}

func (err *WarmingUp) Code() int {
	return WarmingUpErrorCode
}

func (err *WarmingUp) Severity() Severity {
	return SeverityFatal
}

func (err *WarmingUp) RefreshTimeMillis() *int {
	return err.Refresh
}

// ConnectionFailure covers transport failures which produced no HTTP response at all
// (DNS failures, refused connections, resets).
type ConnectionFailure struct {
	Message string
}

func (err *ConnectionFailure) Error() string {
	return err.Message
}

func (err *ConnectionFailure) Code() int {
	return ConnectionFailureErrorCode
}

func (err *ConnectionFailure) Severity() Severity {
	return SeverityFatal
}

// BadServerResponse should be used when the ad server answered with a non-2xx status.
//
// These should not be used to log _connection_ errors (e.g. "couldn't find host"),
// which are ConnectionFailures.
type BadServerResponse struct {
	Message    string
	StatusCode int
}

func (err *BadServerResponse) Error() string {
	if err.Message != "" {
		return err.Message
	}
	return fmt.Sprintf("Ad server responded with status %d", err.StatusCode)
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityFatal
}

// Warning is a generic non-fatal error.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
