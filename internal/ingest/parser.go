// Package ingest parses companion condition-series files (weather columns,
// tariff tables) into samples for the series store.
package ingest

import (
	"io"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/model"
)

// Parser reads condition samples from a source.
type Parser interface {
	Parse(r io.Reader) ([]model.Sample, error)
}
