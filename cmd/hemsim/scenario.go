package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/clock"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/config"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/ingest"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/registry"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/store"
)

// scenario is a fully loaded run setup: the resolved component graph, the
// clock for the configured horizon and, when loadSeries ran, the condition
// series store.
type scenario struct {
	doc   config.Document
	graph *registry.Graph
	clk   *clock.Clock
	store *store.Store
}

// loadScenario reads and validates the scenario document at path and builds
// the component graph and clock. Series files are not read here; validate
// works without them.
func loadScenario(path string) (*scenario, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	graph, err := registry.Build(doc)
	if err != nil {
		return nil, err
	}

	start, err := config.ParseStart(doc.Simulation.Start)
	if err != nil {
		return nil, err
	}
	holidays := make(map[string]bool, len(doc.Simulation.Holidays))
	for _, h := range doc.Simulation.Holidays {
		holidays[h] = true
	}
	clk, err := clock.New(clock.Config{
		Start:        start,
		Steps:        doc.Simulation.Steps,
		StepDuration: time.Duration(doc.Simulation.StepMinutes) * time.Minute,
		Holidays:     holidays,
	})
	if err != nil {
		return nil, err
	}

	return &scenario{doc: doc, graph: graph, clk: clk}, nil
}

// loadSeries reads every declared series file into the store. Relative
// series paths resolve against the scenario document's directory.
func (s *scenario) loadSeries(scenarioPath string) error {
	base := filepath.Dir(scenarioPath)
	s.store = store.New()

	for _, sd := range s.doc.Series {
		path := sd.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		samples, err := ingest.ReadSeriesFile(path, sd.Column)
		if err != nil {
			return fmt.Errorf("series %s: %w", sd.Name, err)
		}
		for _, id := range s.seriesIDs(sd) {
			s.store.Add(id, samples)
		}
	}
	return nil
}

// seriesIDs maps one declared series to its store keys. A tariff series is
// keyed per supply, so one rate file may serve several supplies.
func (s *scenario) seriesIDs(sd config.Series) []model.SeriesID {
	switch sd.Kind {
	case "weather":
		switch sd.Name {
		case "outdoor_temp":
			return []model.SeriesID{model.SeriesOutdoorTemp}
		case "solar":
			return []model.SeriesID{model.SeriesSolarIrradiance}
		}
	case "tariff":
		var ids []model.SeriesID
		for _, sp := range s.doc.Supplies {
			if sp.TariffSeries == sd.Name {
				ids = append(ids, model.TariffSeries(sp.Name))
			}
		}
		return ids
	}
	return nil
}
