package sensor

import (
	"sort"
	"time"

	"github.com/juju/errors"

	"github.com/temoto/teleinfo/helpers"
	"github.com/temoto/teleinfo/tic"
)

// Definition describes one recognized sensor label. Immutable after
// configuration load.
type Definition struct {
	Label     string // wire label, registry key
	Name      string // logical name for consumers, defaults to Label
	Unit      string
	Kind      Kind
	Subscribe bool          // eligible for events
	Cycle     time.Duration // forced push override, 0 = follow global cycle
	Enum      []string      // allowed values for KindEnum
}

// Registry is the label -> Definition catalog. Read-only after New.
type Registry struct {
	m map[string]*Definition
}

func NewRegistry(defs []Definition) (*Registry, error) {
	self := &Registry{m: make(map[string]*Definition, len(defs))}
	errs := make([]error, 0, 4)
	for i := range defs {
		d := defs[i]
		if d.Label == "" {
			errs = append(errs, errors.NotValidf("sensor label=(empty)"))
			continue
		}
		if _, ok := self.m[d.Label]; ok {
			errs = append(errs, errors.NotValidf("sensor label=%s duplicate", d.Label))
			continue
		}
		if d.Name == "" {
			d.Name = d.Label
		}
		if d.Kind == KindInvalid {
			errs = append(errs, errors.NotValidf("sensor label=%s kind", d.Label))
			continue
		}
		if d.Kind == KindEnum && len(d.Enum) == 0 {
			errs = append(errs, errors.NotValidf("sensor label=%s kind=enum without values", d.Label))
			continue
		}
		self.m[d.Label] = &d
	}
	return self, helpers.FoldErrors(errs)
}

// Get returns the definition for a wire label. Missing label is a
// normal condition: the meter emits more than a deployment cares about.
func (self *Registry) Get(label string) (*Definition, bool) {
	d, ok := self.m[label]
	return d, ok
}

func (self *Registry) Len() int { return len(self.m) }

func (self *Registry) Labels() []string {
	ls := make([]string, 0, len(self.m))
	for l := range self.m {
		ls = append(ls, l)
	}
	sort.Strings(ls)
	return ls
}

// Builtin is the default catalog per dialect, used when the config
// names no sensors. Covers the common Linky label set plus the
// deployment-facing aliases a relay box emits (ENERGY, TARIFF, MSG,
// POWER-IN, POWER-OUT).
func Builtin(d tic.Dialect) []Definition {
	common := []Definition{
		{Label: "ADPS", Name: "over-power", Unit: "A", Kind: KindInt, Subscribe: true},
		{Label: "SINSTS", Name: "instant-power", Unit: "VA", Kind: KindInt, Subscribe: true},
		{Label: "SINSTI", Name: "instant-power-injected", Unit: "VA", Kind: KindInt, Subscribe: true},
		{Label: "ENERGY", Name: "energy-counter", Unit: "Wh", Kind: KindInt, Subscribe: true},
		{Label: "TARIFF", Name: "tariff-name", Kind: KindString, Subscribe: true},
		{Label: "MSG", Name: "provider-message", Kind: KindString, Subscribe: true},
		{Label: "POWER-IN", Name: "power-in", Unit: "VA", Kind: KindInt, Subscribe: true},
		{Label: "POWER-OUT", Name: "power-out", Unit: "VA", Kind: KindInt, Subscribe: true},
		{Label: "STGE", Name: "status-register", Kind: KindStatus, Subscribe: true},
		{Label: "NTARF", Name: "tariff-index", Kind: KindInt, Subscribe: true},
	}

	if d == tic.DialectHistoric {
		return append(common, []Definition{
			{Label: "ADCO", Name: "meter-address", Kind: KindString},
			{Label: "OPTARIF", Name: "tariff-option", Kind: KindString},
			{Label: "ISOUSC", Name: "subscribed-current", Unit: "A", Kind: KindInt},
			{Label: "BASE", Name: "energy-counter", Unit: "Wh", Kind: KindInt, Subscribe: true},
			{Label: "HCHC", Name: "energy-offpeak", Unit: "Wh", Kind: KindInt, Subscribe: true},
			{Label: "HCHP", Name: "energy-peak", Unit: "Wh", Kind: KindInt, Subscribe: true},
			{Label: "PTEC", Name: "tariff-period", Kind: KindString, Subscribe: true},
			{Label: "IINST", Name: "instant-current", Unit: "A", Kind: KindInt, Subscribe: true},
			{Label: "IMAX", Name: "max-current", Unit: "A", Kind: KindInt},
			{Label: "PAPP", Name: "apparent-power", Unit: "VA", Kind: KindInt, Subscribe: true},
			{Label: "MOTDETAT", Name: "meter-state", Kind: KindString},
		}...)
	}

	return append(common, []Definition{
		{Label: "ADSC", Name: "meter-address", Kind: KindString},
		{Label: "DATE", Name: "meter-date", Kind: KindStamped}, // changes every frame, keep silent
		{Label: "NGTF", Name: "calendar-name", Kind: KindString},
		{Label: "LTARF", Name: "tariff-name", Kind: KindString, Subscribe: true},
		{Label: "NJOURF", Name: "calendar-day", Kind: KindInt},
		{Label: "NJOURF+1", Name: "calendar-day-next", Kind: KindInt},
		{Label: "EAST", Name: "energy-drawn", Unit: "Wh", Kind: KindInt, Subscribe: true},
		{Label: "EAIT", Name: "energy-injected", Unit: "Wh", Kind: KindInt, Subscribe: true},
		{Label: "IRMS1", Name: "rms-current-1", Unit: "A", Kind: KindInt, Subscribe: true},
		{Label: "IRMS2", Name: "rms-current-2", Unit: "A", Kind: KindInt, Subscribe: true},
		{Label: "IRMS3", Name: "rms-current-3", Unit: "A", Kind: KindInt, Subscribe: true},
		{Label: "URMS1", Name: "rms-voltage-1", Unit: "V", Kind: KindInt},
		{Label: "URMS2", Name: "rms-voltage-2", Unit: "V", Kind: KindInt},
		{Label: "URMS3", Name: "rms-voltage-3", Unit: "V", Kind: KindInt},
		{Label: "PREF", Name: "reference-power", Unit: "kVA", Kind: KindInt},
		{Label: "PCOUP", Name: "cutoff-power", Unit: "kVA", Kind: KindInt},
		{Label: "SMAXSN", Name: "power-in", Unit: "VA", Kind: KindStamped, Subscribe: true},
		{Label: "SMAXIN", Name: "power-out", Unit: "VA", Kind: KindStamped, Subscribe: true},
		{Label: "UMOY1", Name: "average-voltage-1", Unit: "V", Kind: KindStamped},
		{Label: "MSG1", Name: "provider-message", Kind: KindString, Subscribe: true},
		{Label: "MSG2", Name: "provider-message-short", Kind: KindString},
		{Label: "RELAIS", Name: "relay-position", Kind: KindInt, Subscribe: true},
	}...)
}
