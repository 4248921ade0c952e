package runner

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/model"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var created []string
	factory := func(key string) HandlerFactory {
		return func(HandlerContext) (ResultHandler, error) {
			created = append(created, key)
			return ResultHandlerFunc(func(*model.TestCaseRunResult) error { return nil }), nil
		}
	}
	r.Register("xml", factory("xml"))
	r.Register("log", factory("log"))
	r.Register("broken", func(HandlerContext) (ResultHandler, error) { return nil, errors.New("no output dir") })

	require.Equal(t, []string{"broken", "log", "xml"}, r.Keys())
	require.Panics(t, func() { r.Register("xml", factory("xml")) })

	ctx := HandlerContext{Logger: zerolog.Nop(), OutputDir: t.TempDir()}
	handlers, err := r.Handlers(ctx, []string{"xml", "log"})
	require.NoError(t, err)
	require.Len(t, handlers, 2)
	require.Equal(t, []string{"xml", "log"}, created)

	_, err = r.Handlers(ctx, []string{"junit"})
	require.ErrorContains(t, err, `unknown result handler "junit", known handlers: broken, log, xml`)

	_, err = r.Handlers(ctx, []string{"broken"})
	require.ErrorContains(t, err, "no output dir")
}
