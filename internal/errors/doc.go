// Package errors provides structured, actionable error messages for the
// framehook command.
//
// Every error carries a code (e.g. "FH100") that maps to a registered
// template with a short message and a longer explanation. Callers add a
// suggestion and wrap the underlying cause:
//
//	err := errors.New("FH101").
//	    WithDetailf("loop.fps is %d", cfg.Loop.FPS).
//	    WithSuggestion("Use a frame rate between 1 and 1000").
//	    Wrap(cause)
//
//	errors.Print(os.Stderr, err)
//	// ERROR FH101: Invalid frame rate
//	//
//	//   loop.fps is 0
//	//
//	//   Hint: Use a frame rate between 1 and 1000
//	//
//	//   Caused by: ...
package errors
