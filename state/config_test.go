package state

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/tele"
	"github.com/temoto/teleinfo/tic"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, context.Context)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, ctx context.Context) {
			g := GetGlobal(ctx)
			d, err := g.Config.Dialect()
			require.NoError(t, err)
			assert.Equal(t, tic.DialectHistoric, d)
			// no sensor blocks: builtin catalog
			assert.True(t, g.Registry.Len() > 10)
		}, ""},

		{"standard dialect",
			`stream { dialect = "standard" cycle_sec = 300 }`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				d, err := g.Config.Dialect()
				require.NoError(t, err)
				assert.Equal(t, tic.DialectStandard, d)
				assert.Equal(t, 300*time.Second, g.Config.Cycle())
			}, ""},

		{"bad dialect", `stream { dialect = "klingon" }`, nil, "dialect"},

		{"sensors",
			`stream {
				sensor "BASE" { kind = "int" unit = "Wh" subscribe = true cycle_sec = 60 }
				sensor "PTEC" { kind = "enum" values = ["HP..", "HC.."] subscribe = true }
			}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				assert.Equal(t, 2, g.Registry.Len())
				d, ok := g.Registry.Get("BASE")
				require.True(t, ok)
				assert.Equal(t, "Wh", d.Unit)
				assert.Equal(t, time.Minute, d.Cycle)
				d, ok = g.Registry.Get("PTEC")
				require.True(t, ok)
				assert.Equal(t, []string{"HP..", "HC.."}, d.Enum)
			}, ""},

		{"bad sensor kind",
			`stream { sensor "X" { kind = "float" } }`,
			nil, "kind"},

		{"transport",
			`transport {
				serial { enable = true device = "/dev/ttyAMA0" baud = 1200 parity = "even" }
				udp { enable = true listen = ":20108" }
			}`,
			func(t testing.TB, ctx context.Context) {
				c := GetGlobal(ctx).Config
				assert.True(t, c.Transport.Serial.Enable)
				assert.Equal(t, "/dev/ttyAMA0", c.Transport.Serial.Device)
				assert.Equal(t, 1200, c.Transport.Serial.Baud)
				assert.True(t, c.Transport.UDP.Enable)
				assert.Equal(t, ":20108", c.Transport.UDP.Listen)
			}, ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{"test-inline": c.input})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				ctx, g := NewContext(log, tele.Noop{})
				err = g.Init(ctx, cfg)
				if err == nil {
					if c.check != nil {
						c.check(t, ctx)
					}
					return
				}
			}
			if c.expectErr == "" {
				t.Fatal(err)
			}
			assert.Contains(t, err.Error(), c.expectErr)
		})
	}
}

func TestConfigInclude(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{
		"a": `include "b" {} stream { dialect = "standard" }`,
		"b": `tele { enable = false topic_prefix = "meter9" }`,
	})
	cfg, err := ReadConfig(log, fs, "a")
	require.NoError(t, err)
	assert.Equal(t, "standard", cfg.Stream.Dialect)
	assert.Equal(t, "meter9", cfg.Tele.TopicPrefix)
}

func TestConfigIncludeMissing(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{
		"a": `include "nope" {}`,
		"b": `include "nope" { optional = true }`,
	})
	_, err := ReadConfig(log, fs, "a")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))

	_, err = ReadConfig(log, fs, "b")
	assert.NoError(t, err)
}
