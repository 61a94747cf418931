package ws

import (
	"log"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/results"
	"github.com/brian-jones-mt/epb-home-energy-model/internal/solver"
)

// Bridge implements engine.Callback and broadcasts run events to the hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnInterval(iv results.Interval) {
	msg, err := IntervalMessage(iv)
	if err != nil {
		log.Printf("Error marshaling interval: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnWarning(w solver.Warning) {
	msg, err := WarningMessage(w)
	if err != nil {
		log.Printf("Error marshaling warning: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnSummary(s results.Summary) {
	msg, err := SummaryMessage(s)
	if err != nil {
		log.Printf("Error marshaling summary: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
