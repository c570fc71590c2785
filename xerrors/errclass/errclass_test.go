package errclass_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
)

func TestGetClass(t *testing.T) {
	t.Parallel()

	errPlain := errors.New("plain")
	errTransient := errclass.WrapAs(errors.New("retry me"), errclass.Transient)
	errPanic := errclass.WrapAs(errors.New("boom"), errclass.Panic)

	tests := []struct {
		name string
		err  error
		want errclass.Class
	}{
		{name: "nil", err: nil, want: errclass.Nil},
		{name: "unclassified", err: errPlain, want: errclass.Unknown},
		{name: "transient", err: errTransient, want: errclass.Transient},
		{name: "joined takes most severe", err: errors.Join(errTransient, errPanic, errPlain), want: errclass.Panic},
		{name: "joined unclassified", err: errors.Join(errPlain, errPlain), want: errclass.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errclass.GetClass(tt.err))
		})
	}
}

func TestWrapAsNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, errclass.WrapAs(nil, errclass.Persistent))
	assert.Equal(t, "persistent", errclass.Persistent.String())
	assert.Equal(t, "unknown", errclass.Class(42).String())
}
