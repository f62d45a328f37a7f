package stdx

// Must1 takes the two results of a call that returns a value and an error,
// and returns the value when the error is nil. When the error is not nil it
// panics with that error.
//
// It is meant for program setup, where a failure means the wiring itself is
// wrong and the program has nothing sensible to fall back to:
//
//	r := stdx.Must1(runner.New(broker, runner.Stage(workers...)))
//
// Parameters:
//   - v: The value returned by the call.
//   - err: The error returned by the call.
//
// Returns:
//   - v, when err is nil.
//
// Panics:
//   - With err, when err is not nil.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
