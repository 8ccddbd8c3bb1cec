// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"cmp"
	"slices"

	"github.com/gammazero/deque"
)

// offerWindow bounds how many of the nearest candidates are offered one
// task before it is recorded as unaccepted.
const offerWindow = 10

// offerBackoffMinutes is the pause after any declined offer, including the
// last one, before the dispatch proceeds.
const offerBackoffMinutes = 1.0

// candidate pairs a worker with its distance from the requesting property.
type candidate struct {
	worker *Worker
	distKm float64
}

// dispatch walks a single task through its lifecycle: candidate search, the
// offer loop, travel, on-site work, and the terminal outcome record. Each
// stage is one step of a simulation process, so concurrent tasks interleave
// on the virtual clock exactly as their stage durations dictate.
type dispatch struct {
	sim    *simulation
	prop   *PropertyNode
	ttype  TaskType
	proc   *Proc
	id     string
	start  float64
	offers deque.Deque[candidate]
	chosen *Worker
	distKm float64
	travel float64
	work   float64
}

func (s *simulation) spawnDispatch(prop *PropertyNode, ttype TaskType) {
	d := &dispatch{sim: s, prop: prop, ttype: ttype}
	d.proc = s.eng.Spawn("dispatch "+ttype.Name+" at "+prop.Name, d.search)
}

func (d *dispatch) search() {
	d.start = d.sim.eng.Now()
	d.id = d.sim.newTaskID(d.prop)
	cands := d.sim.candidates(d.ttype.Skill, d.prop.Lat, d.prop.Lon)
	if len(cands) == 0 {
		d.sim.emit(EventRecord{
			Time:       d.start,
			Kind:       KindNoCandidates,
			TaskID:     d.id,
			Property:   d.prop.Name,
			PropertyID: d.prop.ID,
			TaskType:   d.ttype.Name,
			WorkerID:   UnmatchedWorkerID,
		})
		return
	}
	if len(cands) > offerWindow {
		cands = cands[:offerWindow]
	}
	for _, c := range cands {
		d.offers.PushBack(c)
	}
	d.offer()
}

func (d *dispatch) offer() {
	if d.offers.Len() == 0 {
		d.sim.emit(EventRecord{
			Time:       d.sim.eng.Now(),
			Kind:       KindUnaccepted,
			TaskID:     d.id,
			Property:   d.prop.Name,
			PropertyID: d.prop.ID,
			TaskType:   d.ttype.Name,
			WorkerID:   UnmatchedWorkerID,
		})
		return
	}
	c := d.offers.PopFront()
	if d.sim.reserved(c.worker) {
		// A reserved worker declines without consuming a random draw, so
		// enabling exclusivity does not shift unrelated draws.
		d.proc.Suspend(offerBackoffMinutes, d.offer)
		return
	}
	if d.sim.rng.Float64() < c.worker.Acceptance {
		d.accept(c)
		return
	}
	d.proc.Suspend(offerBackoffMinutes, d.offer)
}

func (d *dispatch) accept(c candidate) {
	d.chosen = c.worker
	d.distKm = c.distKm
	d.sim.reserve(c.worker, d.id)
	d.travel = TravelMinutes(c.distKm, c.worker.SpeedKmph)
	d.proc.Suspend(d.travel, d.begin)
}

func (d *dispatch) begin() {
	d.work = lognormMinutes(d.sim.rng, d.ttype.MeanMinutes)
	d.proc.Suspend(d.work, d.finish)
}

func (d *dispatch) finish() {
	d.sim.release(d.chosen)
	now := d.sim.eng.Now()
	wait := now - d.start
	rec := EventRecord{
		Time:          now,
		TaskID:        d.id,
		Property:      d.prop.Name,
		PropertyID:    d.prop.ID,
		TaskType:      d.ttype.Name,
		WorkerID:      d.chosen.ID,
		DistanceKm:    d.distKm,
		TravelMinutes: d.travel,
		WorkMinutes:   d.work,
		WaitMinutes:   wait,
		WithinSLA:     wait <= d.ttype.SLAMinutes,
	}
	if d.sim.rng.Float64() < d.chosen.Reliability {
		rec.Kind = KindCompleted
		rec.Payout = d.ttype.Payout(wait)
	} else {
		rec.Kind = KindFailed
	}
	d.sim.emit(rec)
}

// candidates returns the workers that advertise skill within the search
// radius of (lat, lon), ordered nearest first. Equidistant workers rank by
// id so replays are stable.
func (s *simulation) candidates(skill string, lat, lon float64) []candidate {
	var out []candidate
	for i := range s.sc.Workers {
		w := &s.sc.Workers[i]
		if !w.HasSkill(skill) {
			continue
		}
		d := Haversine(lat, lon, w.Lat, w.Lon)
		if d <= s.cfg.MaxRadiusKm {
			out = append(out, candidate{worker: w, distKm: d})
		}
	}
	slices.SortFunc(out, func(a, b candidate) int {
		if c := cmp.Compare(a.distKm, b.distKm); c != 0 {
			return c
		}
		return cmp.Compare(a.worker.ID, b.worker.ID)
	})
	return out
}
