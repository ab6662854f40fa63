// Command skirmish runs a headless AI-vs-AI match and prints the outcome,
// exercising the full stack: match setup, the tick kernel, the AI planner
// feeding actions back through the reducers, and the debug event sink.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/egeozcan/rtsim/ai"
	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

func main() {
	var (
		maxTicks  = flag.Int64("ticks", 20000, "tick limit before the match is called a timeout")
		diffA     = flag.String("a", "medium", "difficulty of the first AI")
		diffB     = flag.String("b", "hard", "difficulty of the second AI")
		verbose   = flag.Bool("v", false, "log planner decisions and eliminations")
		snapshotP = flag.String("snapshot", "", "write the final state as JSON to this path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	catalog := rules.DefaultCatalog()

	mc := world.MatchConfig{
		Mode: "skirmish",
		Players: []world.MatchPlayer{
			{ID: 1, IsAI: true, Difficulty: *diffA, StartX: 400, StartY: 400},
			{ID: 2, IsAI: true, Difficulty: *diffB, StartX: 2600, StartY: 2600},
		},
	}
	s, err := mc.New(catalog, log)
	if err != nil {
		log.Error("match setup failed", "err", err)
		os.Exit(1)
	}

	aiWorld := ai.NewAIWorld()

	// Bridge kernel damage events into the vengeance accumulator: the
	// planner itself never sees damage resolve, so the sink is where "one
	// of my units was attacked" becomes a score.
	var sink event.Sink = event.Func(func(e event.Event) {
		if e.Kind == event.KindState {
			if action, _ := e.Data["action"].(string); action == "damage" {
				if victim := s.Entities[world.EntityID(e.EntityID)]; victim != nil && victim.Owner != 0 {
					aiWorld.RecordHit(victim.Owner, world.PlayerID(e.PlayerID))
				}
			}
		}
		if *verbose && (e.Kind == event.KindDecision || (e.Kind == event.KindState && e.Data["action"] == "eliminated")) {
			log.Info("event", "kind", string(e.Kind), "tick", e.Tick, "player", e.PlayerID, "data", e.Data)
		}
	})

	k := world.KernelConfig{Catalog: catalog, Log: log, Sink: sink}.New()
	if *verbose {
		aiWorld.SetSink(sink)
	}

	for s.Running && s.Tick < *maxTicks {
		for _, player := range s.OrderedPlayers() {
			if !player.IsAI {
				continue
			}
			for _, a := range aiWorld.ComputeActions(s, catalog, player.ID) {
				s = world.Apply(s, catalog, k, a)
			}
		}
		s = k.Tick(s)
	}

	switch {
	case s.Winner.Decided && s.Winner.Draw:
		fmt.Printf("draw after %d ticks\n", s.Tick)
	case s.Winner.Decided:
		fmt.Printf("player %d wins after %d ticks\n", s.Winner.PlayerID, s.Tick)
	default:
		fmt.Printf("timeout after %d ticks\n", s.Tick)
	}

	if *snapshotP != "" {
		data, err := world.EncodeState(s)
		if err != nil {
			log.Error("snapshot failed", "err", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*snapshotP, data, 0o644); err != nil {
			log.Error("snapshot write failed", "err", err)
			os.Exit(1)
		}
		log.Info("snapshot written", "path", *snapshotP, "bytes", len(data))
	}
}
