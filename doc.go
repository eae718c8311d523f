/*
Package trap converts structured panics into error values.

Go has no try/catch, and a panic unwinds until it kills the goroutine unless something recovers it. Some libraries
signal recoverable conditions (e.g. a memory budget being exhausted) by panicking. Package trap gives these libraries a
structured way to raise such conditions - Raise panics with a named *Fault - and gives callers an explicit boundary -
Try - that turns exactly those panics into an *Error:

	ok, err := trap.Try(func() {
		decode(buf)
	})
	if !ok {
		if name, _ := trap.ExceptionName(err); name == trap.N.OutOfMemory {
			// shed load and continue
		}
		return err
	}

Only *Fault panics are trapped. Runtime errors such as nil pointer dereferences, panics with any other value,
runtime.Goexit and fatal runtime errors keep propagating past the boundary.
*/
package trap
