package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/config"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
)

// validDoc is a small but complete scenario: one heated zone, a schedule
// feeding a thermostat, a boiler on a gas supply, and a cylinder.
func validDoc() config.Document {
	return config.Document{
		Zones: []config.Zone{{
			Name:            "living",
			HeatLossWPerK:   120,
			HeatCapacityWhK: 4000,
			InitialTempC:    18,
			ComfortMinC:     18,
			ComfortMaxC:     25,
			Control:         "stat",
			HeatSource:      "boiler",
		}},
		Controls: []config.Control{
			{
				Name: "heating_times",
				Type: "schedule",
				Weekday: []config.ScheduleBlock{
					{StartHour: 6, EndHour: 9, SetpointC: 20},
					{StartHour: 16, EndHour: 22, SetpointC: 21},
				},
				Weekend: []config.ScheduleBlock{
					{StartHour: 7, EndHour: 23, SetpointC: 21},
				},
			},
			{
				Name:       "stat",
				Type:       "thermostat",
				BandC:      0.5,
				SensesZone: "living",
				Input:      "heating_times",
				SetbackC:   12,
			},
		},
		HeatSources: []config.HeatSource{{
			Name:         "boiler",
			Type:         "boiler",
			RatedOutputW: 12000,
			Efficiency:   0.9,
			Supply:       "mains_gas",
		}},
		HotWater: []config.HotWater{{
			Name:       "cylinder",
			VolumeL:    150,
			ColdFeedC:  10,
			DeliveryC:  52,
			HeatSource: "boiler",
			DrawOffs:   []config.DrawOff{{Hour: 7, Litres: 40}, {Hour: 19, Litres: 60}},
		}},
		Supplies: []config.Supply{{
			Name:         "mains_gas",
			Fuel:         "gas",
			TariffSeries: "gas_rate",
		}},
		Series: []config.Series{
			{Name: "outdoor_temp", Kind: "weather", Path: "weather.csv"},
			{Name: "gas_rate", Kind: "tariff", Path: "gas.csv"},
		},
	}
}

func violationFields(err error) []string {
	ve, ok := err.(*ValidationError)
	if !ok {
		return nil
	}
	fields := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		fields[i] = v.Component + "/" + v.Field
	}
	return fields
}

func TestBuild_Valid(t *testing.T) {
	g, err := Build(validDoc())
	require.NoError(t, err)
	require.NotNil(t, g)

	h, ok := g.Lookup("living")
	require.True(t, ok)
	assert.Equal(t, model.KindZone, h.Kind())
	assert.Equal(t, "living", g.Name(h))

	zone := g.Zone(h)
	assert.True(t, zone.Heated())
	assert.Equal(t, "stat", g.Control(zone.Control).Name)
	assert.Equal(t, "boiler", g.Source(zone.Source).Name)
	assert.Equal(t, "mains_gas", g.SupplyAt(g.Source(zone.Source).Supply).Name)
}

func TestBuild_UnresolvedReferenceNamesIdentifier(t *testing.T) {
	doc := validDoc()
	doc.Zones[0].Control = "no_such_control"

	_, err := Build(doc)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Violations, 1)
	assert.Contains(t, ve.Violations[0].Message, "no_such_control")
	assert.Equal(t, "living", ve.Violations[0].Component)
}

func TestBuild_DuplicateNameAcrossKinds(t *testing.T) {
	doc := validDoc()
	doc.Supplies = append(doc.Supplies, config.Supply{Name: "living", Fuel: "electricity"})

	_, err := Build(doc)
	require.Error(t, err)
	assert.Contains(t, violationFields(err), "living/name")
}

func TestBuild_CollectsAllViolations(t *testing.T) {
	doc := validDoc()
	doc.Zones[0].HeatLossWPerK = -1     // bad parameter
	doc.Zones[0].HeatSource = "missing" // unresolved ref
	doc.HeatSources[0].Efficiency = 1.4 // out of range
	doc.Controls[1].SensesZone = ""     // thermostat without sensed zone

	_, err := Build(doc)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Violations), 4)
}

func TestBuild_ControlInputCycle(t *testing.T) {
	doc := validDoc()
	doc.Controls[0].Input = "stat" // heating_times -> stat -> heating_times

	_, err := Build(doc)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	found := false
	for _, v := range ve.Violations {
		if v.Field == "input" {
			found = true
		}
	}
	assert.True(t, found, "expected a cycle violation on an input field: %v", ve.Violations)
}

func TestBuild_SensingBackReferenceIsNotACycle(t *testing.T) {
	// stat senses living, living is controlled by stat: permitted.
	_, err := Build(validDoc())
	assert.NoError(t, err)
}

func TestBuild_KindMismatchReference(t *testing.T) {
	doc := validDoc()
	doc.Zones[0].HeatSource = "stat" // a control, not a heat source

	_, err := Build(doc)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Violations[0].Message, "expected a heat_source")
}

func TestBuild_ScheduleBlockValidation(t *testing.T) {
	doc := validDoc()
	doc.Controls[0].Weekday = []config.ScheduleBlock{
		{StartHour: 6, EndHour: 5, SetpointC: 20},  // inverted
		{StartHour: 4, EndHour: 8, SetpointC: 120}, // overlap + absurd setpoint
	}

	_, err := Build(doc)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Violations), 3)
}

func TestBuild_MissingWeatherSeries(t *testing.T) {
	doc := validDoc()
	doc.Series = doc.Series[1:] // drop outdoor_temp

	_, err := Build(doc)
	require.Error(t, err)
	assert.Contains(t, violationFields(err), "series/outdoor_temp")
}

func TestBuild_EvaluationOrder(t *testing.T) {
	g, err := Build(validDoc())
	require.NoError(t, err)

	order := g.Order()
	pos := make(map[string]int)
	for i, h := range order {
		pos[g.Name(h)] = i
	}

	// Upstream control before its consumer
	assert.Less(t, pos["heating_times"], pos["stat"])
	// Controls before demand, demand before supply, supply before metering
	assert.Less(t, pos["stat"], pos["living"])
	assert.Less(t, pos["living"], pos["boiler"])
	assert.Less(t, pos["cylinder"], pos["boiler"])
	assert.Less(t, pos["boiler"], pos["mains_gas"])
}

func TestBuild_FreeRunningZone(t *testing.T) {
	doc := validDoc()
	doc.Zones = append(doc.Zones, config.Zone{
		Name:            "garage",
		HeatLossWPerK:   80,
		HeatCapacityWhK: 2000,
		InitialTempC:    12,
		ComfortMinC:     5,
		ComfortMaxC:     30,
	})

	g, err := Build(doc)
	require.NoError(t, err)
	h, _ := g.Lookup("garage")
	assert.False(t, g.Zone(h).Heated())
}

func TestBuild_HalfHeatedZoneRejected(t *testing.T) {
	doc := validDoc()
	doc.Zones[0].Control = ""

	_, err := Build(doc)
	require.Error(t, err)
	assert.Contains(t, violationFields(err), "living/control")
}

func TestGraph_RequiredSeries(t *testing.T) {
	g, err := Build(validDoc())
	require.NoError(t, err)

	ids := g.RequiredSeries()
	assert.Contains(t, ids, model.SeriesOutdoorTemp)
	assert.Contains(t, ids, model.TariffSeries("mains_gas"))
	assert.NotContains(t, ids, model.SeriesSolarIrradiance)
}

func TestValidationError_MessageListsEverything(t *testing.T) {
	doc := validDoc()
	doc.Zones[0].Control = "ghost"
	doc.HeatSources[0].RatedOutputW = 0

	_, err := Build(doc)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "ghost")
	assert.Contains(t, msg, "rated_output_w")
}
