package tele

import (
	"context"

	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	tele_config "github.com/temoto/teleinfo/tele/config"
)

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Init(context.Context, *log2.Log, tele_config.Config) error { return nil }

func (Noop) Close() {}

func (Noop) Event(sensor.Event) {}

func (Noop) Error(error) {}
