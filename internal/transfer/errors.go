package transfer

import "errors"

var (
	ErrSourceVanished        = errors.New("source vanished")
	ErrDestinationUnwritable = errors.New("destination unwritable")
)

// Error describes a failed transfer of Path. It matches both its Kind and
// the underlying cause with errors.Is.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == nil {
		return e.Err.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindName returns the name used for err in status lines.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrSourceVanished):
		return "SourceVanished"
	case errors.Is(err, ErrDestinationUnwritable):
		return "DestinationUnwritable"
	default:
		return "TransferFailed"
	}
}
