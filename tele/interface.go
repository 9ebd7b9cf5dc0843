package tele

import (
	"context"

	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	tele_config "github.com/temoto/teleinfo/tele/config"
)

// Teler publishes sensor events off the box. Event must be fast and
// non-blocking: the store sink calls it while holding the store lock,
// so implementations hand off to their own delivery machinery.
type Teler interface {
	Init(context.Context, *log2.Log, tele_config.Config) error
	Close()
	Event(sensor.Event)
	Error(error)
}

func New(config tele_config.Config) Teler {
	if !config.Enabled {
		return Noop{}
	}
	return &mqttTeler{}
}
