package main

import (
	"context"
	"encoding/hex"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"

	"github.com/temoto/teleinfo/decoder"
	"github.com/temoto/teleinfo/helpers/cli"
	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/state"
	"github.com/temoto/teleinfo/tele"
	"github.com/temoto/teleinfo/tic"
)

const usage = `syntax: commands separated by whitespace
(main)
- @XX...     feed raw bytes from hex XX... into the decoder
- line:TEXT  checksum+frame TEXT and feed it, | stands for the dialect separator
- get:LABEL  show current value of sensor LABEL
- labels     list sensors seen so far
- stat       decoder counters
- sN         pause N milliseconds

(meta)
- log=yes  enable debug logging
- log=no   disable debug logging
- loop=N   repeat N times all commands on this line
`

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := cmdline.String("config", "", "optional config file for dialect and sensors")
	dialectFlag := cmdline.String("dialect", "", "historic|standard, overrides config")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	var config *state.Config
	if *configPath != "" {
		config = state.MustReadConfig(log, state.NewOsFullReader(), *configPath)
	} else {
		config = new(state.Config)
	}
	if *dialectFlag != "" {
		config.Stream.Dialect = *dialectFlag
	}
	config.Tele.Enabled = false // CLI never publishes

	ctx, g := state.NewContext(log, tele.New(config.Tele))
	g.MustInit(ctx, config)

	stream := g.Decoder.NewStream("cli")
	ctx = context.WithValue(ctx, streamKey, stream)
	defer stream.Close()

	cli.MainLoop("teleinfo-tic-cli", newExecutor(ctx), newCompleter())
}

const streamKey = "tic-cli/stream"

func ctxStream(ctx context.Context) *decoder.Stream {
	return ctx.Value(streamKey).(*decoder.Stream)
}

type doer func(ctx context.Context) error

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		prompt.Suggest{Text: "@XX", Description: "feed raw hex bytes"},
		prompt.Suggest{Text: "line:", Description: "checksum+frame a line and feed it"},
		prompt.Suggest{Text: "get:", Description: "show sensor value"},
		prompt.Suggest{Text: "labels", Description: "list sensors seen so far"},
		prompt.Suggest{Text: "stat", Description: "decoder counters"},
		prompt.Suggest{Text: "sN", Description: "pause for N ms"},
		prompt.Suggest{Text: "loop=N", Description: "repeat line N times"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		ds, loopn, err := parseLine(line)
		if err != nil {
			g.Log.Errorf(errors.ErrorStack(err))
			return
		}
		if loopn == 0 {
			loopn = 1
		}
		for i := uint(0); i < loopn; i++ {
			for _, d := range ds {
				if err = d(ctx); err != nil {
					g.Log.Errorf(errors.ErrorStack(err))
					return
				}
			}
		}
	}
}

func parseLine(line string) ([]doer, uint, error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil, 0, nil
	}

	loopn := uint(0)
	ds := make([]doer, 0, len(words))
	for _, word := range words {
		switch {
		case word == "help":
			return []doer{doUsage}, 0, nil
		case strings.HasPrefix(word, "loop="):
			if loopn != 0 {
				return nil, 0, errors.Errorf("multiple loop commands, expected at most one")
			}
			i, err := strconv.ParseUint(word[5:], 10, 32)
			if err != nil {
				return nil, 0, errors.Annotatef(err, "word=%s", word)
			}
			loopn = uint(i)
		default:
			d, err := parseCommand(word)
			if err != nil {
				return nil, 0, err
			}
			ds = append(ds, d)
		}
	}
	return ds, loopn, nil
}

func parseCommand(word string) (doer, error) {
	switch {
	case word == "log=yes":
		return func(ctx context.Context) error { log2.ContextValueLogger(ctx).SetLevel(log2.LDebug); return nil }, nil
	case word == "log=no":
		return func(ctx context.Context) error { log2.ContextValueLogger(ctx).SetLevel(log2.LError); return nil }, nil
	case word == "labels":
		return doLabels, nil
	case word == "stat":
		return doStat, nil
	case strings.HasPrefix(word, "get:"):
		return newGet(word[4:]), nil
	case strings.HasPrefix(word, "line:"):
		return newLine(word[5:]), nil
	case word[0] == '@':
		bs, err := hex.DecodeString(word[1:])
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return newFeed(bs), nil
	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		d := time.Duration(i) * time.Millisecond
		return func(context.Context) error { time.Sleep(d); return nil }, nil
	default:
		return nil, errors.Errorf("error: invalid command: '%s'", word)
	}
}

func doUsage(ctx context.Context) error {
	log2.ContextValueLogger(ctx).Infof(usage)
	return nil
}

func doLabels(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	log2.ContextValueLogger(ctx).Infof("labels: %s", strings.Join(g.Decoder.Store().Labels(), " "))
	return nil
}

func doStat(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	log2.ContextValueLogger(ctx).Infof("stat: %s", g.Decoder.Stat().String())
	return nil
}

func newGet(label string) doer {
	return func(ctx context.Context) error {
		g := state.GetGlobal(ctx)
		snap, ok := g.Decoder.Store().Get(label)
		if !ok {
			return errors.NotFoundf("sensor=%s", label)
		}
		log2.ContextValueLogger(ctx).Infof("%s name=%s value=%s changed=%s", snap.Label, snap.Name, snap.Value.String(), snap.ChangedAt.Format(time.RFC3339))
		return nil
	}
}

func newFeed(bs []byte) doer {
	return func(ctx context.Context) error {
		ctxStream(ctx).Feed(bs)
		return nil
	}
}

// newLine builds a full framed line from bare label|data text; the
// checksum is computed, not typed.
func newLine(text string) doer {
	return func(ctx context.Context) error {
		g := state.GetGlobal(ctx)
		sep := g.Decoder.Dialect().Sep()
		payload := strings.ReplaceAll(text, "|", string(sep))

		span := []byte(payload)
		if g.Decoder.Dialect() == tic.DialectStandard {
			span = append(span, sep)
		}
		raw := make([]byte, 0, len(payload)+6)
		raw = append(raw, tic.STX, tic.LF)
		raw = append(raw, payload...)
		raw = append(raw, sep, tic.Checksum(span), tic.CR, tic.ETX)
		ctxStream(ctx).Feed(raw)
		return nil
	}
}
