//go:build !trapnostack

package trap

import (
	"bytes"
	"fmt"
	"sync"

	gostack "github.com/eluv-io/stack"
)

// stack is embedded in a Fault and records the call stack at the point where the fault was created - usually the
// Raise call site, which is the information needed to locate the faulting code once the panic has been trapped.
//
// The trace is resolved lazily, at most once, so that a trapped fault may be printed from several goroutines.
type stack struct {
	pcs       []uintptr         // the program counters returned by runtime.Callers()
	traceOnce sync.Once         // guards trace
	trace     gostack.CallStack // the call stack - only filled in when needed.
}

// populateStack records the current call stack. It must be called directly from New().
func (f *Fault) populateStack() {
	// 2 removes the populateStack() and New() functions
	f.pcs = gostack.Callers(2)
}

// dropStackFrames removes the top n stack frames. Only valid before the fault is raised.
func (f *Fault) dropStackFrames(n int) *Fault {
	if len(f.pcs) > n {
		f.pcs = f.pcs[n:]
	}
	return f
}

func (f *Fault) callStack() gostack.CallStack {
	f.traceOnce.Do(func() {
		if f.pcs != nil {
			f.trace = gostack.TraceFrom(f.pcs).TrimRuntime()
		}
	})
	return f.trace
}

// printStack formats and prints the stack of this Fault to the given buffer.
func (f *Fault) printStack(b *bytes.Buffer) {
	trace := f.callStack()
	if PrintStacktracePretty {
		filenames := make([]string, len(trace))
		max := 0
		for i, call := range trace {
			filenames[i] = fmt.Sprintf("%+v", call)
			fl := len(filenames[i])
			if max < fl {
				max = fl
			}
		}
		for i, call := range trace {
			fmt.Fprintf(b, "\t%-*s %n()\n", max, filenames[i], call)
		}
		return
	}
	for _, call := range trace {
		fmt.Fprintf(b, "\t%+v\t%[1]n()\n", call)
	}
}

func (f *Fault) hasStack() bool {
	return f.pcs != nil
}
