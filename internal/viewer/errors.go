package viewer

import "fmt"

// Kind classifies how an inspection failed.
type Kind int

const (
	// KindUsage means no document path was given.
	KindUsage Kind = iota + 1
	// KindLoad means the store or the document could not be created.
	KindLoad
	// KindModel means the document model could not be analyzed or printed.
	KindModel
	// KindUnexpected covers every other failure, including recovered panics.
	KindUnexpected
	// KindCleanup means the store could not be released.
	KindCleanup
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindLoad:
		return "load"
	case KindModel:
		return "model"
	case KindUnexpected:
		return "unexpected"
	case KindCleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the failure of one inspection. It is only ever displayed.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the line shown to the user for e.
func (e *Error) Message() string {
	switch e.Kind {
	case KindUsage:
		return usage
	case KindLoad:
		return fmt.Sprintf("Error creating SPDX Document: %v\n", e.Err)
	case KindModel:
		return fmt.Sprintf("Error pretty printing SPDX Document: %v\n", e.Err)
	case KindCleanup:
		return fmt.Sprintf("Warning - unable to close SPDX store: %v\n", e.Err)
	default:
		return fmt.Sprintf("Unexpected error displaying SPDX Document: %v\n", e.Err)
	}
}
