// Package model holds the shared typed vocabulary of the simulation:
// component kinds, opaque component handles, condition-series identity
// and time ranges. Every other package speaks in these types.
package model

import (
	"fmt"
	"time"
)

// Kind classifies a configured component.
type Kind int

const (
	KindUnknown Kind = iota
	KindZone
	KindControl
	KindHeatSource
	KindHotWater
	KindSupply
)

func (k Kind) String() string {
	switch k {
	case KindZone:
		return "zone"
	case KindControl:
		return "control"
	case KindHeatSource:
		return "heat_source"
	case KindHotWater:
		return "hot_water"
	case KindSupply:
		return "supply"
	default:
		return "unknown"
	}
}

// Handle is an opaque, stable reference to a resolved component. Handles are
// minted once by the registry when names are resolved; all runtime lookups go
// through handles, never through the user-chosen names. The zero value is
// invalid.
type Handle struct {
	kind  Kind
	index int32
}

// NewHandle mints a handle for the i-th component of the given kind.
// Only the registry should call this.
func NewHandle(kind Kind, index int) Handle {
	return Handle{kind: kind, index: int32(index)}
}

// Kind reports the component kind the handle refers to.
func (h Handle) Kind() Kind { return h.kind }

// Index is the position of the component within its kind's definition slice.
func (h Handle) Index() int { return int(h.index) }

// Valid reports whether the handle refers to anything at all.
func (h Handle) Valid() bool { return h.kind != KindUnknown }

func (h Handle) String() string {
	if !h.Valid() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("%s#%d", h.kind, h.index)
}

// SeriesID identifies one external condition series (weather column, tariff
// table) inside the series store.
type SeriesID string

const (
	// SeriesOutdoorTemp is the outdoor air temperature series, degrees C.
	SeriesOutdoorTemp SeriesID = "weather.outdoor_temp_c"
	// SeriesSolarIrradiance is the global solar irradiance series, W/m2.
	SeriesSolarIrradiance SeriesID = "weather.solar_w_m2"
)

// TariffSeries returns the series ID for a supply's tariff rates.
func TariffSeries(supplyName string) SeriesID {
	return SeriesID("tariff." + supplyName)
}

// Sample is one time-stamped value of a condition series.
type Sample struct {
	Time  time.Time
	Value float64
}

// TimeRange is a half-open-ish interval; Start and End are both meaningful
// instants, End >= Start.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Covers reports whether other lies entirely within the range.
func (tr TimeRange) Covers(other TimeRange) bool {
	return !tr.Start.After(other.Start) && !tr.End.Before(other.End)
}

// IsZero reports whether the range is unset.
func (tr TimeRange) IsZero() bool {
	return tr.Start.IsZero() && tr.End.IsZero()
}
