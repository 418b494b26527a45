package bot

import "fmt"

// ValidationError is malformed user input. Its text is shown to the user
// verbatim and the operation is abandoned without logging an error.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

func validationf(format string, args ...any) ValidationError {
	return ValidationError(fmt.Sprintf(format, args...))
}
