package state

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/temoto/teleinfo/helpers"
	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	tele_config "github.com/temoto/teleinfo/tele/config"
	"github.com/temoto/teleinfo/tic"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Stream struct {
		Dialect  string `hcl:"dialect"` // historic (default) | standard
		CycleSec int    `hcl:"cycle_sec"`
		// only used for Unmarshal, use SensorDefs()
		XXX_Sensors []SensorConfig `hcl:"sensor"`
	} `hcl:"stream"`

	Transport struct {
		Serial struct {
			Enable bool   `hcl:"enable"`
			Device string `hcl:"device"`
			Baud   int    `hcl:"baud"` // 0 = dialect default
			Bits   int    `hcl:"bits"`
			Parity string `hcl:"parity"`
		} `hcl:"serial"`
		UDP struct {
			Enable bool   `hcl:"enable"`
			Listen string `hcl:"listen"`
		} `hcl:"udp"`
	} `hcl:"transport"`

	Tele tele_config.Config `hcl:"tele"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

type SensorConfig struct {
	Label     string   `hcl:"label,key"`
	Name      string   `hcl:"name"`
	Unit      string   `hcl:"unit"`
	Kind      string   `hcl:"kind"`
	Subscribe bool     `hcl:"subscribe"`
	CycleSec  int      `hcl:"cycle_sec"`
	Values    []string `hcl:"values"` // kind=enum
}

func (c *Config) Dialect() (tic.Dialect, error) {
	if c.Stream.Dialect == "" {
		return tic.DialectHistoric, nil
	}
	return tic.ParseDialect(c.Stream.Dialect)
}

func (c *Config) Cycle() time.Duration {
	return time.Duration(c.Stream.CycleSec) * time.Second
}

// SensorDefs converts configured sensor blocks; with none configured
// the dialect's builtin catalog applies.
func (c *Config) SensorDefs(d tic.Dialect) ([]sensor.Definition, error) {
	if len(c.Stream.XXX_Sensors) == 0 {
		return sensor.Builtin(d), nil
	}
	defs := make([]sensor.Definition, 0, len(c.Stream.XXX_Sensors))
	errs := make([]error, 0)
	for _, sc := range c.Stream.XXX_Sensors {
		kind, err := sensor.ParseKind(sc.Kind)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "config sensor=%s", sc.Label))
			continue
		}
		defs = append(defs, sensor.Definition{
			Label:     sc.Label,
			Name:      sc.Name,
			Unit:      sc.Unit,
			Kind:      kind,
			Subscribe: sc.Subscribe,
			Cycle:     time.Duration(sc.CycleSec) * time.Second,
			Enum:      sc.Values,
		})
	}
	return defs, helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
