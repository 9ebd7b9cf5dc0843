package decode

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"

	"github.com/temoto/teleinfo/cmd/teleinfo/subcmd"
	"github.com/temoto/teleinfo/decoder"
	"github.com/temoto/teleinfo/state"
	"github.com/temoto/teleinfo/transport"
)

var Mod = subcmd.Mod{Name: "decode", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	dialect := g.Decoder.Dialect()
	g.Log.Debugf("decode dialect=%s sensors=%d", dialect.String(), g.Registry.Len())

	sources := make([]transport.Source, 0, 2)
	if config.Transport.Serial.Enable {
		opt := transport.SerialOptions{
			Device: config.Transport.Serial.Device,
			Baud:   config.Transport.Serial.Baud,
			Bits:   config.Transport.Serial.Bits,
			Parity: config.Transport.Serial.Parity,
		}
		if opt.Baud == 0 {
			opt.Baud = dialect.DefaultBaud()
		}
		sources = append(sources, transport.NewSerial(opt))
	}
	if config.Transport.UDP.Enable {
		sources = append(sources, transport.NewUDP(config.Transport.UDP.Listen))
	}
	if len(sources) == 0 {
		return errors.NotValidf("config: no transport enabled")
	}

	streams := make([]*decoder.Stream, 0, len(sources))
	for _, src := range sources {
		stream := g.Decoder.NewStream(src.String())
		streams = append(streams, stream)
		if !g.Alive.Add(1) {
			return errors.Errorf("code error decode: stopped before start")
		}
		go transport.Run(g.Alive, src, stream, g.Log)
	}
	g.Scheduler.Start()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		g.Log.Infof("decode: signal=%v shutdown", sig)
		g.Alive.Stop()
	}()

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("decode: running")

	g.Alive.Wait()
	for _, stream := range streams {
		stream.Close()
	}
	g.Scheduler.Stop()
	g.Tele.Close()
	g.Log.Infof("decode: stat %s", g.Decoder.Stat().String())
	return nil
}
