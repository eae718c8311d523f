//go:build trapnostack

package trap

import "bytes"

// stack is a noop implementation that disables stack collection & printing when the trapnostack build tag is set. See
// stack.go for further information.
type stack struct{}

func (f *Fault) populateStack()               {}
func (f *Fault) printStack(*bytes.Buffer)     {}
func (f *Fault) dropStackFrames(n int) *Fault { return f }
func (f *Fault) hasStack() bool               { return false }
