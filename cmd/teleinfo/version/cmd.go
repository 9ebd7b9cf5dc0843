package version

import (
	"context"
	"fmt"
	"runtime"

	"github.com/temoto/teleinfo/cmd/teleinfo/subcmd"
	"github.com/temoto/teleinfo/state"
)

var Mod = subcmd.Mod{Name: "version", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	fmt.Printf("teleinfo %s %s %s/%s\n", g.BuildVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
