package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"

	"github.com/temoto/teleinfo/cmd/teleinfo/decode"
	"github.com/temoto/teleinfo/cmd/teleinfo/subcmd"
	"github.com/temoto/teleinfo/cmd/teleinfo/version"
	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/state"
	"github.com/temoto/teleinfo/tele"
)

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	decode.Mod,
	version.Mod,
}

// set at build: go build -ldflags "-X main.BuildVersion=`git describe`"
var BuildVersion string = "unknown"

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "teleinfo.hcl", "")
	if err := cmdline.Parse(os.Args[1:]); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}

	command := cmdline.Arg(0)
	if command == "" {
		command = "decode"
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		names := make([]string, 0, len(modules))
		for _, m := range modules {
			names = append(names, m.Name)
		}
		fmt.Fprintf(os.Stderr, "%v\nusage: teleinfo [-config=path] {%s}\n", err, strings.Join(names, "|"))
		os.Exit(1)
	}

	if subcmd.SdNotify("STATUS=init") {
		// under systemd assume journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.Debugf("command=%s config=%s", mod.Name, *flagConfig)

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	ctx, g := state.NewContext(log, tele.New(config.Tele))
	g.BuildVersion = BuildVersion

	if err := mod.Main(ctx, config); err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}
