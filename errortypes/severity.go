package errortypes

// Severity tells whether an error ends the current waterfall walk or only describes data which
// was skipped.
type Severity int

const (
	SeverityUnknown Severity = iota

	// SeverityFatal ends the walk. The loader reports it to its listener.
	SeverityFatal

	// SeverityWarning marks a response entry which was skipped while the rest of the envelope
	// stayed usable.
	SeverityWarning
)

// IsWarning returns true if err is a Coder of SeverityWarning.
func IsWarning(err error) bool {
	s, ok := err.(Coder)
	return ok && s.Severity() == SeverityWarning
}
