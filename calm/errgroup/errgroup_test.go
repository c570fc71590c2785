package errgroup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/zkr-chromelogger/calm/errgroup"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
)

func TestGroupRecoversPanic(t *testing.T) {
	t.Parallel()

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { panic("worker exploded") })
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err := g.Wait()
	require.Error(t, err)
	assert.Equal(t, errclass.Panic, errclass.GetClass(err))
}

func TestGroupNoError(t *testing.T) {
	t.Parallel()

	g := errgroup.New()
	g.Go(func() error { return nil })
	assert.NoError(t, g.Wait())
}
