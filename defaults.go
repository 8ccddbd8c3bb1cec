// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"fmt"
	"math/rand/v2"
)

// Default scenario shape: a metro area centered on lower Manhattan with
// properties jittered up to 0.3 degrees from the center and workers up to
// 0.35 degrees, so some workers start outside every property's default
// search radius.
const (
	defaultCenterLat      = 40.7128
	defaultCenterLon      = -74.0060
	defaultPropertySpread = 0.3
	defaultWorkerSpread   = 0.35
)

// defaultSkillSets are the skill combinations workers are drawn from.
var defaultSkillSets = [][]string{
	{"tech"},
	{"clean"},
	{"audit"},
	{"promo"},
	{"tech", "clean"},
	{"clean", "audit"},
	{"tech", "promo"},
}

// DefaultTaskTypes returns the standard four-type catalog: maintenance,
// cleaning, audit, and marketing visits, with their mean durations, required
// skills, base payouts, and SLAs.
func DefaultTaskTypes() map[string]TaskType {
	return map[string]TaskType{
		"Maintenance": {Name: "Maintenance", MeanMinutes: 60, Skill: "tech", BasePayout: 35.0, SLAMinutes: 240},
		"Cleaning":    {Name: "Cleaning", MeanMinutes: 45, Skill: "clean", BasePayout: 25.0, SLAMinutes: 180},
		"Audit":       {Name: "Audit", MeanMinutes: 20, Skill: "audit", BasePayout: 12.0, SLAMinutes: 120},
		"Marketing":   {Name: "Marketing", MeanMinutes: 30, Skill: "promo", BasePayout: 18.0, SLAMinutes: 180},
	}
}

// DefaultScenario synthesizes a runnable scenario: numProperties sites and
// numWorkers workers scattered around the default center, with the
// [DefaultTaskTypes] catalog and a fixed arrival-rate mix per property. All
// placement and worker attributes are drawn from rng, so the same generator
// state reproduces the same scenario.
func DefaultScenario(rng *rand.Rand, numProperties, numWorkers int) *Scenario {
	sc := &Scenario{
		Properties: make([]PropertyNode, 0, numProperties),
		Workers:    make([]Worker, 0, numWorkers),
		TaskTypes:  DefaultTaskTypes(),
	}
	for i := 0; i < numProperties; i++ {
		sc.Properties = append(sc.Properties, PropertyNode{
			ID:   i,
			Name: fmt.Sprintf("Property-%03d", i),
			Lat:  defaultCenterLat + uniform(rng, -defaultPropertySpread, defaultPropertySpread),
			Lon:  defaultCenterLon + uniform(rng, -defaultPropertySpread, defaultPropertySpread),
			TaskRates: map[string]float64{
				"Maintenance": 0.2,
				"Cleaning":    0.3,
				"Audit":       0.4,
				"Marketing":   0.1,
			},
		})
	}
	for i := 0; i < numWorkers; i++ {
		sc.Workers = append(sc.Workers, Worker{
			ID:          i,
			Name:        fmt.Sprintf("Worker-%03d", i),
			Lat:         defaultCenterLat + uniform(rng, -defaultWorkerSpread, defaultWorkerSpread),
			Lon:         defaultCenterLon + uniform(rng, -defaultWorkerSpread, defaultWorkerSpread),
			Skills:      defaultSkillSets[rng.IntN(len(defaultSkillSets))],
			SpeedKmph:   uniform(rng, 15, 30),
			Acceptance:  uniform(rng, 0.8, 0.98),
			Reliability: uniform(rng, 0.9, 0.995),
		})
	}
	return sc
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
