package trap_test

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eluv-io/trap-go"
)

func init() {
	trap.PrintStacktrace = false
	trap.MarshalStacktrace = false
}

func TestTry(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		called := false
		ok, err := trap.Try(func() {
			called = true
		})
		require.True(t, ok)
		require.NoError(t, err)
		require.True(t, called)
	})
	t.Run("early return", func(t *testing.T) {
		ok, err := trap.Try(func() {
			if true {
				return
			}
			trap.Raise(trap.N.Internal, "unreachable")
		})
		require.True(t, ok)
		require.Nil(t, err)
	})
	t.Run("nil work", func(t *testing.T) {
		ok, err := trap.Try(nil)
		require.True(t, ok)
		require.Nil(t, err)
	})
	t.Run("out of memory", func(t *testing.T) {
		ok, err := trap.Try(func() {
			trap.Raise(trap.N.OutOfMemory, "allocation failed", "requestedBytes", 4096)
		})
		require.False(t, ok)
		require.Error(t, err)

		name, found := trap.ExceptionName(err)
		require.True(t, found)
		require.Equal(t, trap.N.OutOfMemory, name)
		require.Contains(t, err.Error(), "allocation failed")

		f := trap.FaultOf(err)
		require.NotNil(t, f)
		val, found := f.Context().Get("requestedBytes")
		require.True(t, found)
		require.Equal(t, 4096, val)

		assert.Equal(t, "op [try] fault [OutOfMemory] reason [allocation failed] requestedBytes [4096]", err.Error())
	})
	t.Run("custom name", func(t *testing.T) {
		ok, err := trap.Try(func() {
			trap.Raise("QuotaExceeded", "too many requests")
		})
		require.False(t, ok)
		require.True(t, trap.IsName("QuotaExceeded", err))
		require.False(t, trap.IsName(trap.N.OutOfMemory, err))
	})
	t.Run("empty name", func(t *testing.T) {
		_, err := trap.Try(func() {
			trap.Raise("", "")
		})
		name, found := trap.ExceptionName(err)
		require.True(t, found)
		require.Equal(t, trap.N.Generic, name)
		assert.Equal(t, "op [try] fault [Generic]", err.Error())
	})
	t.Run("deeply nested call", func(t *testing.T) {
		ok, err := trap.Try(func() {
			recurse(5, func() {
				trap.Raise(trap.N.OutOfRange, "index 7 out of range", "index", 7, "len", 3)
			})
		})
		require.False(t, ok)
		require.True(t, trap.IsName(trap.N.OutOfRange, err))
		require.Equal(t, 7, trap.FaultOf(err).Context().Map()["index"])
	})
	t.Run("raise method", func(t *testing.T) {
		f := trap.New(trap.N.IllegalState, "closed")
		ok, err := trap.Try(f.Raise)
		require.False(t, ok)
		require.Same(t, f, trap.FaultOf(err))
	})
}

func TestTry_sideEffectsRemain(t *testing.T) {
	var steps []string
	ok, _ := trap.Try(func() {
		steps = append(steps, "one")
		trap.Raise(trap.N.Internal, "boom")
		steps = append(steps, "two")
	})
	require.False(t, ok)
	require.Equal(t, []string{"one"}, steps)
}

func TestTry_nested(t *testing.T) {
	var inner error
	ok, err := trap.Try(func() {
		var innerOk bool
		innerOk, inner = trap.Try(func() {
			trap.Raise(trap.N.OutOfMemory, "inner")
		})
		require.False(t, innerOk)
	})
	require.True(t, ok)
	require.NoError(t, err)
	require.True(t, trap.IsName(trap.N.OutOfMemory, inner))

	// a fault raised outside the inner work is trapped by the outer Try only
	ok, err = trap.Try(func() {
		innerOk, innerErr := trap.Try(func() {})
		require.True(t, innerOk)
		require.NoError(t, innerErr)
		trap.Raise(trap.N.Internal, "outer")
	})
	require.False(t, ok)
	require.True(t, trap.IsName(trap.N.Internal, err))
	require.Equal(t, "outer", trap.FaultOf(err).Reason())
}

func TestTry_nonFaultPanicsPropagate(t *testing.T) {
	tests := []struct {
		name string
		work func()
	}{
		{"string", func() { panic("boom") }},
		{"error", func() { panic(io.EOF) }},
		{"nil fault", func() { panic((*trap.Fault)(nil)) }},
		{"fault value", func() { panic(trap.Fault{}) }},
		{"nil", func() { panic(nil) }},
		{"nil map", func() {
			var m map[string]int
			m["a"] = 1
		}},
		{"index", func() {
			s := []int{}
			_ = s[len(s)]
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Panics(t, func() {
				_, _ = trap.Try(test.work)
			})
		})
	}

	t.Run("panic value unchanged", func(t *testing.T) {
		defer func() {
			r := recover()
			require.Equal(t, io.EOF, r)
		}()
		_, _ = trap.Try(func() { panic(io.EOF) })
		t.Fatal("not reached")
	})

	t.Run("runtime error unchanged", func(t *testing.T) {
		defer func() {
			r := recover()
			_, isRuntimeError := r.(runtime.Error)
			require.True(t, isRuntimeError, "%T", r)
		}()
		_, _ = trap.Try(func() {
			var p *trap.Fault
			_ = p.Name()
		})
		t.Fatal("not reached")
	})

	t.Run("passes through nested boundaries", func(t *testing.T) {
		require.PanicsWithValue(t, "boom", func() {
			_, _ = trap.Try(func() {
				_, _ = trap.Try(func() {
					panic("boom")
				})
			})
		})
	})
}

func TestTry_concurrent(t *testing.T) {
	wg := sync.WaitGroup{}
	errs := make([]error, 50)
	for i := 0; i < len(errs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := trap.Try(func() {
				if i%2 == 0 {
					trap.Raise(trap.Name(fmt.Sprint("fault-", i)), "concurrent", "i", i)
				}
			})
			assert.Equal(t, i%2 != 0, ok)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%2 != 0 {
			require.NoError(t, err)
			continue
		}
		name, ok := trap.ExceptionName(err)
		require.True(t, ok)
		require.Equal(t, trap.Name(fmt.Sprint("fault-", i)), name)
		val, _ := trap.FaultOf(err).Context().Get("i")
		require.Equal(t, i, val)
	}
}

func TestCatch(t *testing.T) {
	decode := func(fail bool) (err error) {
		defer trap.Catch(&err)
		if fail {
			trap.Raise(trap.N.InvalidArgument, "bad header", "offset", 12)
		}
		return nil
	}

	require.NoError(t, decode(false))

	err := decode(true)
	require.Error(t, err)
	require.True(t, trap.IsName(trap.N.InvalidArgument, err))
	assert.Equal(t, "op [catch] fault [InvalidArgument] reason [bad header] offset [12]", err.Error())

	require.Panics(t, func() {
		func() (err error) {
			defer trap.Catch(&err)
			panic("boom")
		}()
	})
	require.Panics(t, func() {
		func() (err error) {
			defer trap.Catch(&err)
			panic(nil)
		}()
	})
	require.Panics(t, func() {
		func() {
			defer trap.Catch(nil)
			trap.Raise(trap.N.Internal, "no target")
		}()
	})
}

func TestCatch_existingError(t *testing.T) {
	partial := io.ErrUnexpectedEOF
	decode := func() (err error) {
		defer trap.Catch(&err)
		err = partial
		trap.Raise(trap.N.OutOfMemory, "allocation failed", "requestedBytes", 4096)
		return err
	}

	err := decode()
	list, ok := err.(*trap.ErrorList)
	require.True(t, ok)
	require.Len(t, list.Errors, 2)
	require.Equal(t, partial, list.Errors[0])

	name, found := trap.ExceptionName(err)
	require.True(t, found)
	require.Equal(t, trap.N.OutOfMemory, name)
	val, _ := trap.FaultOf(err).Context().Get("requestedBytes")
	require.Equal(t, 4096, val)
	require.ErrorIs(t, err, partial)
}

func TestCheck(t *testing.T) {
	ok, err := trap.Try(func() {
		trap.Check(trap.N.Internal, nil)
	})
	require.True(t, ok)
	require.NoError(t, err)

	ok, err = trap.Try(func() {
		trap.Check(trap.N.Internal, io.ErrUnexpectedEOF, "file", "data.bin")
	})
	require.False(t, ok)
	f := trap.FaultOf(err)
	require.Equal(t, trap.N.Internal, f.Name())
	require.Equal(t, io.ErrUnexpectedEOF.Error(), f.Reason())
	val, _ := f.Context().Get("file")
	require.Equal(t, "data.bin", val)
}

func TestTryEach(t *testing.T) {
	require.NoError(t, trap.TryEach())
	require.NoError(t, trap.TryEach(func() {}, nil, func() {}))

	err := trap.TryEach(
		func() {},
		func() { trap.Raise(trap.N.OutOfMemory, "first") },
		func() {},
	)
	require.True(t, trap.IsName(trap.N.OutOfMemory, err))

	ran := 0
	err = trap.TryEach(
		func() { ran++; trap.Raise(trap.N.OutOfMemory, "first") },
		func() { ran++ },
		func() { ran++; trap.Raise(trap.N.OutOfRange, "second") },
	)
	require.Equal(t, 3, ran)
	list, ok := err.(*trap.ErrorList)
	require.True(t, ok)
	require.Equal(t, []trap.Name{trap.N.OutOfMemory, trap.N.OutOfRange}, list.Names())
}

func TestLog(t *testing.T) {
	var msgs []string
	var fields [][]interface{}
	logFn := func(msg string, f ...interface{}) {
		msgs = append(msgs, msg)
		fields = append(fields, f)
	}

	require.NoError(t, trap.Log(func() {}, logFn))
	require.Empty(t, msgs)

	err := trap.Log(raiseOutOfMemory, logFn)
	require.True(t, trap.IsName(trap.N.OutOfMemory, err))
	require.Equal(t, []string{"trap.Log trapped fault"}, msgs)
	require.Len(t, fields[0], 6)
	require.Equal(t, "function", fields[0][0])
	require.Contains(t, fields[0][1], "raiseOutOfMemory")
	require.Equal(t, "name", fields[0][2])
	require.Equal(t, trap.N.OutOfMemory, fields[0][3])
	require.Equal(t, "error", fields[0][4])
	require.Equal(t, err, fields[0][5])

	// nil logFn prints to stdout
	require.Error(t, trap.Log(raiseOutOfMemory, nil))
}

func raiseOutOfMemory() {
	trap.Raise(trap.N.OutOfMemory, "allocation failed", "requestedBytes", 4096)
}

func recurse(depth int, fn func()) {
	if depth == 0 {
		fn()
		return
	}
	recurse(depth-1, fn)
}
