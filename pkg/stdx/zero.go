// Package stdx contains small generic helpers missing from the standard library.
package stdx

// Zero returns the zero value of the type T.
//
// Generic code can't write a literal for the zero value of a type parameter,
// so functions that return (T, error) or (T, bool) use Zero on their failure
// paths:
//
//	if closed {
//		return stdx.Zero[T](), ErrClosed
//	}
//
// The zero value is what a variable of type T holds before assignment:
//   - 0 for numeric types
//   - "" for strings
//   - false for booleans
//   - nil for pointers, interfaces, channels, maps, slices and functions
//   - a struct whose fields all hold their own zero value
//
// Returns:
//   - The zero value of T.
func Zero[T any]() T {
	var zero T
	return zero
}
