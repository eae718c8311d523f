package trap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync/atomic"
)

// populateStacktrace controls whether stacktraces are captured on fault creation per default or not. This is
// (obviously) a runtime setting - use the "trapnostack" build tag to disable stacktrace captures at compile time.
var populateStacktrace = atomic.Bool{}

func init() {
	SetPopulateStacktrace(true)
}

func SetPopulateStacktrace(b bool) {
	populateStacktrace.Store(b)
}

func PopulateStacktrace() bool {
	return populateStacktrace.Load()
}

// PrintStacktrace controls whether the stacktrace of the raise site is printed per default or not.
var PrintStacktrace = true

// PrintStacktracePretty enables additional formatting of stacktraces by aligning functions to the longest source filename.
//
// Pretty print:
//
//	github.com/eluv-io/trap-go/try_test.go:21   allocate()
//	github.com/eluv-io/trap-go/try_test.go:35   TestTry.func1()
//	github.com/eluv-io/trap-go/try.go:40        Try()
//
// Regular:
//
//	github.com/eluv-io/trap-go/try_test.go:21	allocate()
//	github.com/eluv-io/trap-go/try_test.go:35	TestTry.func1()
//	github.com/eluv-io/trap-go/try.go:40	Try()
var PrintStacktracePretty = true

// MarshalStacktrace controls whether stacktraces are marshaled to JSON or not. If enabled, an extra "stacktrace" field
// is added to the fault's JSON struct.
var MarshalStacktrace = true

// MarshalStacktraceAsArray controls whether stacktraces are marshaled to JSON as a single string blob or as JSON array
// containing the individual lines of the stacktrace.
var MarshalStacktraceAsArray = true

// Error is the error returned by Try, Catch and TryEach when a fault was trapped. It carries the trapped *Fault under
// the reserved "fault" field.
type Error struct {
	// the boundary that trapped the fault: "try" or "catch"
	op string
	// the trapped fault
	fault *Fault
}

func newError(op string, f *Fault) *Error {
	return &Error{op: op, fault: f}
}

// Op returns the name of the boundary that trapped the fault.
func (e *Error) Op() string {
	return e.op
}

// Fault returns the trapped fault.
func (e *Error) Fault() *Fault {
	return e.fault
}

// Unwrap returns the trapped fault.
func (e *Error) Unwrap() error {
	if e == nil || e.fault == nil {
		return nil
	}
	return e.fault
}

// Field returns the value of the given field: "op", "fault" (the *Fault), "name", "reason" or a key of the fault's
// context. Returns nil if the field does not exist.
func (e *Error) Field(key string) interface{} {
	switch key {
	case "op":
		return e.op
	case "fault":
		if e.fault == nil {
			return nil
		}
		return e.fault
	}
	if e.fault == nil {
		return nil
	}
	switch key {
	case "name":
		return e.fault.name
	case "reason":
		if e.fault.reason == "" {
			return nil
		}
		return e.fault.reason
	}
	val, _ := e.fault.context.Get(key)
	return val
}

// Error returns the string presentation of this Error. The stacktrace of the raise site is printed if available and
// enabled with PrintStacktrace.
//
//	op [try] fault [OutOfMemory] reason [allocation failed] requestedBytes [4096]
func (e *Error) Error() string {
	return e.toString(true)
}

// ErrorNoTrace returns the error as string just like Error() but omits the stack trace.
func (e *Error) ErrorNoTrace() string {
	return e.toString(false)
}

func (e *Error) toString(printStacktrace bool) string {
	if e == nil {
		return ""
	}

	b := new(bytes.Buffer)
	if e.op != "" {
		writeKeyVal(b, "op", e.op)
	}
	if e.fault == nil {
		return b.String()
	}
	e.fault.writeFields(b)

	if printStacktrace && PrintStacktrace {
		if st := e.fault.Stacktrace(); st != "" {
			b.WriteString("\n")
			b.WriteString(st)
		}
	}
	return b.String()
}

// MarshalJSON marshals this error as a JSON object:
//
//	{"op":"try","fault":{"name":"OutOfMemory","reason":"allocation failed","context":{"requestedBytes":4096}}}
func (e *Error) MarshalJSON() ([]byte, error) {
	b := &bytes.Buffer{}
	b.WriteString(`{"op":`)
	bts, err := json.Marshal(e.op)
	if err != nil {
		return nil, err
	}
	b.Write(bts)
	if e.fault != nil {
		b.WriteString(`,"fault":`)
		bts, err = e.fault.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(bts)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON unmarshals an error marshaled with MarshalJSON.
func (e *Error) UnmarshalJSON(b []byte) error {
	ej := struct {
		Op    string `json:"op"`
		Fault *Fault `json:"fault"`
	}{}
	err := json.Unmarshal(b, &ej)
	if err != nil {
		return err
	}
	e.op = ej.Op
	e.fault = ej.Fault
	return nil
}

// ClearStacktrace creates a copy of this error and removes the stacktrace from it. Returns nil if e is nil.
func (e *Error) ClearStacktrace() *Error {
	if e == nil {
		return nil
	}
	clone := *e
	if e.fault != nil {
		clone.fault = e.fault.cloneWithoutStack()
	}
	return &clone
}

// ExceptionName returns the name of the fault embedded in err and true if err - or any error in its wrap chain - is an
// *Error produced by Try, Catch or TryEach. Returns "" and false for any other error, including nil.
func ExceptionName(err error) (Name, bool) {
	f := FaultOf(err)
	if f == nil {
		return "", false
	}
	return f.name, true
}

// FaultOf returns the fault embedded in err if err - or any error in its wrap chain - is an *Error. For an *ErrorList,
// the fault of the first *Error in the list is returned. Returns nil otherwise.
func FaultOf(err error) *Fault {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return nil
	}
	return e.fault
}

// IsName reports whether err is an *Error embedding a fault with the given name. Returns false if err is nil.
func IsName(name Name, err error) bool {
	actual, ok := ExceptionName(err)
	return ok && actual == name
}

// ClearStacktrace removes the stacktrace from the given error if it's an instance of *Error. Does nothing otherwise.
func ClearStacktrace(err error) error {
	e, ok := err.(*Error)
	if !ok || e == nil {
		return err
	}
	return e.ClearStacktrace()
}

// Log runs the given work with Try and logs the fault if one was trapped. Prints to stdout if logFn is nil. Returns
// the error produced by Try, or nil.
//
// Useful for fire-and-forget work that should not take the caller down:
//
//	trap.Log(cache.Evict, log.Warn)
func Log(work func(), logFn func(msg string, fields ...interface{})) error {
	ok, err := Try(work)
	if ok {
		return nil
	}

	msg := "trap.Log trapped fault"
	fnName := "unknown"
	if ffp := runtime.FuncForPC(reflect.ValueOf(work).Pointer()); ffp != nil {
		fnName = ffp.Name()
	}
	name, _ := ExceptionName(err)

	if logFn == nil {
		fmt.Printf("%s: function=%s name=%s error=%s\n", msg, fnName, name, ErrorNoTrace(err))
	} else {
		logFn(msg, "function", fnName, "name", name, "error", err)
	}
	return err
}

// ErrorNoTrace returns err.ErrorNoTrace() if err is an *Error, err.Error() otherwise. Returns "" for nil.
func ErrorNoTrace(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.ErrorNoTrace()
	}
	return err.Error()
}
