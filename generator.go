// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"slices"
	"time"

	"github.com/robfig/cron/v3"
)

// generator drives random task arrivals for one property. It ticks once per
// virtual minute starting at minute one, drawing one Bernoulli trial per
// task type with probability rate/60. A draw is consumed even when the rate
// is zero, which keeps the random stream identical across scenarios that
// differ only in zeroed rates.
type generator struct {
	sim   *simulation
	prop  *PropertyNode
	types []string
	proc  *Proc
}

func (s *simulation) spawnGenerator(prop *PropertyNode) {
	g := &generator{sim: s, prop: prop}
	g.types = make([]string, 0, len(prop.TaskRates))
	for name := range prop.TaskRates {
		g.types = append(g.types, name)
	}
	// Map order varies run to run; replaying a seed needs a fixed draw order.
	slices.Sort(g.types)
	g.proc = s.eng.SpawnAfter(1, "generate "+prop.Name, g.tick)
}

func (g *generator) tick() {
	for _, name := range g.types {
		if g.sim.rng.Float64() < g.prop.TaskRates[name]/60 {
			g.sim.spawnDispatch(g.prop, g.sim.catalog[name])
		}
	}
	g.proc.Suspend(1, g.tick)
}

// scheduler raises one scheduled task's dispatches at each cron occurrence,
// mapping virtual minutes onto the run epoch.
type scheduler struct {
	sim   *simulation
	prop  *PropertyNode
	ttype TaskType
	sched cron.Schedule
	proc  *Proc
}

func (s *simulation) spawnScheduler(prop *PropertyNode, ttype TaskType, sched cron.Schedule, name string) {
	if name == "" {
		name = ttype.Name
	}
	sc := &scheduler{sim: s, prop: prop, ttype: ttype, sched: sched}
	sc.proc = s.eng.Spawn("schedule "+name, sc.arm)
}

// arm suspends until the next cron occurrence. If the schedule has no
// further occurrence (robfig/cron reports none within its five-year search
// window), the process completes and no more tasks are raised.
func (sc *scheduler) arm() {
	now := sc.sim.wallAt(sc.sim.eng.Now())
	next := sc.sched.Next(now)
	if next.IsZero() {
		return
	}
	sc.proc.Suspend(next.Sub(now).Minutes(), sc.fire)
}

func (sc *scheduler) fire() {
	sc.sim.spawnDispatch(sc.prop, sc.ttype)
	sc.arm()
}

// wallAt maps a virtual minute onto wall-clock time for cron evaluation.
func (s *simulation) wallAt(minutes float64) time.Time {
	return s.cfg.epoch().Add(time.Duration(minutes * float64(time.Minute)))
}
