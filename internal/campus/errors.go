package campus

// ErrorKind classifies upstream failures for the orchestration layer: network
// and parse failures read as "query failed, try again later", not-found reads
// as bad user input.
type ErrorKind string

const (
	ErrNetwork  ErrorKind = "network"
	ErrParse    ErrorKind = "parse"
	ErrNotFound ErrorKind = "not_found"
)

// Error is a failure reported by or while reaching the campus balance API.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }
