package trap

// Try runs work and traps any *Fault raised during its execution, including faults raised in nested calls.
//
// Returns true and nil if work completes. Returns false and an *Error embedding the trapped fault if work raised a
// fault - the panic ends here and does not unwind past Try. A nil work completes immediately.
//
// Any other panic - runtime errors, panics with values other than a non-nil *Fault, panic(nil) - is re-raised
// unchanged. Fatal runtime errors (e.g. stack exhaustion) and runtime.Goexit cannot be intercepted at all.
//
// Try may be nested: an inner Try traps the faults raised within its own work, the outer Try never sees them. Side
// effects performed by work before the fault are not rolled back.
func Try(work func()) (ok bool, err error) {
	completed := false
	func() {
		defer func() {
			if completed {
				return
			}
			r := recover()
			if r == nil {
				// panic(nil) with GODEBUG panicnil=1, or runtime.Goexit
				return
			}
			f, isFault := r.(*Fault)
			if !isFault || f == nil {
				panic(r)
			}
			err = newError("try", f)
		}()

		if work != nil {
			work()
		}
		completed = true
	}()

	if completed {
		return true, nil
	}
	if err == nil {
		// only reached if a nil panic was recovered above - runtime.Goexit never returns here
		panic(nil)
	}
	return false, err
}

// Catch traps a *Fault raised in the calling function and stores it as *Error in errp. It has to be deferred directly:
//
//	func decode(buf []byte) (err error) {
//		defer trap.Catch(&err)
//		...
//	}
//
// If errp already holds an error, the trapped fault is appended to it - see Append. ExceptionName and FaultOf still
// find the fault in the resulting *ErrorList. Any other panic is re-raised unchanged, as is a fault if errp is nil.
//
// Catch relies on panic(nil) being reported as *runtime.PanicNilError (the default since Go 1.21). With
// GODEBUG=panicnil=1 a nil panic is indistinguishable from a normal return in a deferred function - use Try instead.
func Catch(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	f, isFault := r.(*Fault)
	if !isFault || f == nil || errp == nil {
		panic(r)
	}
	*errp = Append(*errp, newError("catch", f))
}

// TryEach runs each of the given works with Try, in order, regardless of earlier faults. Returns nil if all works
// complete, the *Error if exactly one raised a fault, and an *ErrorList with all trapped faults otherwise.
func TryEach(works ...func()) error {
	var res error
	for _, work := range works {
		if ok, err := Try(work); !ok {
			res = Append(res, err)
		}
	}
	return res
}
