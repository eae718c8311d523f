package trap

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Fault is a structured, named fault. A Fault is raised by panicking with it - see Raise - and trapped by Try and Catch,
// which wrap it in an *Error. A Fault is immutable once created.
type Fault struct {
	// the fault name
	name Name
	// the human-readable reason
	reason string
	// the additional context information
	context Context
	// Stack information of the raise site; not used if the 'trapnostack' build tag is set.
	stack
	// the stacktrace from an unmarshalled fault (if any)
	unmarshalledStacktrace string
}

// New creates a fault with the given name, reason and context key-value pairs. An empty name is replaced with
// N.Generic. The call stack is recorded unless disabled with SetPopulateStacktrace(false).
//
// New does not raise the fault - use Raise() or (*Fault).Raise() for that.
func New(name Name, reason string, kvs ...interface{}) *Fault {
	f := &Fault{
		name:    name.orGeneric(),
		reason:  reason,
		context: NewContext(kvs...),
	}
	if PopulateStacktrace() {
		f.populateStack()
	}
	return f
}

// Raise raises a fault with the given name, reason and context by panicking with a *Fault. The panic unwinds to the
// nearest enclosing Try or Catch.
//
//	trap.Raise(trap.N.OutOfMemory, "allocation failed", "requestedBytes", 4096)
func Raise(name Name, reason string, kvs ...interface{}) {
	panic(New(name, reason, kvs...).dropStackFrames(1))
}

// Check raises a fault with the given name if err is not nil, using err.Error() as reason. Does nothing otherwise.
func Check(name Name, err error, kvs ...interface{}) {
	if err == nil {
		return
	}
	panic(New(name, err.Error(), kvs...).dropStackFrames(1))
}

// Raise raises this fault.
func (f *Fault) Raise() {
	panic(f)
}

// Name returns the fault's name.
func (f *Fault) Name() Name {
	return f.name
}

// Reason returns the fault's reason, or "" if none was given.
func (f *Fault) Reason() string {
	return f.reason
}

// Context returns the fault's context.
func (f *Fault) Context() Context {
	return f.context
}

// Error returns the fault as string, without stacktrace:
//
//	fault [OutOfMemory] reason [allocation failed] requestedBytes [4096]
func (f *Fault) Error() string {
	b := new(bytes.Buffer)
	f.writeFields(b)
	return b.String()
}

// Stacktrace returns the formatted call stack of the raise site, or "" if none is available.
func (f *Fault) Stacktrace() string {
	if f.unmarshalledStacktrace != "" {
		return f.unmarshalledStacktrace
	}
	if !f.hasStack() {
		return ""
	}
	b := new(bytes.Buffer)
	f.printStack(b)
	return b.String()
}

func (f *Fault) writeFields(b *bytes.Buffer) {
	writeKeyVal(b, "fault", f.name)
	if f.reason != "" {
		writeKeyVal(b, "reason", f.reason)
	}
	for i := 0; i+1 < len(f.context.m); i += 2 {
		writeKeyVal(b, f.context.m[i].(string), f.context.m[i+1])
	}
}

// cloneWithoutStack returns a shallow copy of this fault without stack information.
func (f *Fault) cloneWithoutStack() *Fault {
	clone := &Fault{
		name:    f.name,
		reason:  f.reason,
		context: f.context,
	}
	return clone
}

type faultJSON struct {
	Name       Name            `json:"name"`
	Reason     string          `json:"reason,omitempty"`
	Context    *Context        `json:"context,omitempty"`
	Stacktrace json.RawMessage `json:"stacktrace,omitempty"`
}

// MarshalJSON marshals this fault as a JSON object. The stacktrace is included if MarshalStacktrace is true.
func (f *Fault) MarshalJSON() ([]byte, error) {
	return f.marshal(MarshalStacktrace)
}

func (f *Fault) marshal(withStack bool) ([]byte, error) {
	fj := faultJSON{
		Name:   f.name,
		Reason: f.reason,
	}
	if f.context.Len() > 0 {
		ctx := f.context
		fj.Context = &ctx
	}
	if withStack {
		st := f.Stacktrace()
		if st != "" {
			var val interface{} = st
			if MarshalStacktraceAsArray {
				val = stacktraceToArray(st)
			}
			bts, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			fj.Stacktrace = bts
		}
	}
	return json.Marshal(fj)
}

// UnmarshalJSON unmarshals the given JSON object. The stacktrace (if any) is retained as text only.
func (f *Fault) UnmarshalJSON(b []byte) error {
	var fj faultJSON
	err := json.Unmarshal(b, &fj)
	if err != nil {
		return err
	}
	*f = Fault{
		name:   fj.Name.orGeneric(),
		reason: fj.Reason,
	}
	if fj.Context != nil {
		f.context = *fj.Context
	}
	if len(fj.Stacktrace) > 0 {
		f.unmarshalledStacktrace = unmarshalStacktrace(fj.Stacktrace)
	}
	return nil
}

func stacktraceToArray(s string) []string {
	// trim empty lines or lines containing only whitespace
	s = strings.Trim(s, "\n\t ")
	if s == "" {
		return []string{}
	}

	res := strings.Split(s, "\n")
	for i, line := range res {
		res[i] = strings.Trim(line, "\t\n ")
	}
	return res
}

// unmarshalStacktrace converts a stacktrace marshaled as string or array of lines back to its printed form.
func unmarshalStacktrace(raw json.RawMessage) string {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		sb := strings.Builder{}
		for _, line := range lines {
			sb.WriteString("\t")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		return sb.String()
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}
