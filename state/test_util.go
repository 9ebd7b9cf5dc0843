package state

import (
	"context"
	"testing"

	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/tele"
)

func NewTestContext(t testing.TB, confString string) (context.Context, *Global) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log, tele.Noop{})
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	return ctx, g
}
