package failure

type Severity int

// scheduler control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}

// Retryable is implemented by errors that know whether repeating
// the failed operation can succeed.
type Retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether err asks to be retried.
// Errors that do not implement Retryable are treated as retryable.
func IsRetryable(err error) bool {
	if r, ok := err.(Retryable); ok {
		return r.IsRetryable()
	}
	return true
}
