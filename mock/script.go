package mock

import (
	"io"

	"github.com/dealerscloud/dcbev"
)

// Script returns a Stream that yields the given deltas in order and then
// completes normally with io.EOF.
func Script(deltas ...string) *Stream {
	return script(deltas, io.EOF)
}

// ScriptFailure returns a Stream that yields the given deltas in order and
// then terminates with err instead of completing.
func ScriptFailure(err error, deltas ...string) *Stream {
	return script(deltas, err)
}

func script(deltas []string, terminal error) *Stream {
	i := 0
	state := dcbev.StreamStateNew
	s := &Stream{}
	s.NextFn = func() (string, error) {
		if i < len(deltas) {
			state = dcbev.StreamStateStreaming
			d := deltas[i]
			i++
			return d, nil
		}
		if terminal == io.EOF {
			state = dcbev.StreamStateComplete
		} else {
			state = dcbev.StreamStateError
		}
		return "", terminal
	}
	s.StateFn = func() dcbev.StreamState { return state }
	return s
}
