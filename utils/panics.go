package utils

import "fmt"

// RecoverWithError turns a panic in the deferring function into its returned error.
func RecoverWithError(err *error) {
	rv := recover()
	if rv == nil {
		return
	}
	if cause, ok := rv.(error); ok {
		*err = fmt.Errorf("got panic: %w", cause)
		return
	}
	*err = fmt.Errorf("got panic: %v", rv)
}
