package state

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/temoto/teleinfo/decoder"
	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	"github.com/temoto/teleinfo/tele"
)

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Log          *log2.Log
	Tele         tele.Teler
	Registry     *sensor.Registry
	Decoder      *decoder.Decoder
	Scheduler    *sensor.Scheduler
}

const ContextKey = "run/state-global"

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

func NewContext(log *log2.Log, teler tele.Teler) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}
	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, ContextKey, g)
	return ctx, g
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg

	// tele is the remote error reporting mechanism, it comes up first
	g.Config.Tele.BuildVersion = g.BuildVersion
	if err := g.Tele.Init(ctx, g.Log, g.Config.Tele); err != nil {
		return errors.Annotate(err, "tele init")
	}

	dialect, err := cfg.Dialect()
	if err != nil {
		return errors.Annotate(err, "config stream.dialect")
	}
	defs, err := cfg.SensorDefs(dialect)
	if err != nil {
		return errors.Trace(err)
	}
	g.Registry, err = sensor.NewRegistry(defs)
	if err != nil {
		return errors.Annotate(err, "config stream.sensor")
	}

	g.Decoder = decoder.NewDecoder(dialect, g.Registry, func(e sensor.Event) {
		g.Log.Infof("event sensor=%s value=%s reason=%s", e.Label, e.Value.String(), e.Reason.String())
		g.Tele.Event(e)
	}, g.Log)
	g.Scheduler = sensor.NewScheduler(g.Registry, g.Decoder.Store(), cfg.Cycle(), g.Log)
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf(errors.ErrorStack(err))
		g.Tele.Error(err)
	}
}
