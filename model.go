// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import "slices"

// TaskType describes one category of work that can arise at a property.
type TaskType struct {
	// Name is the catalog key. It may be left empty in a [Scenario] catalog,
	// in which case the map key is used.
	Name string `yaml:"name,omitempty"`

	// MeanMinutes is the arithmetic mean of the on-site work duration.
	MeanMinutes float64 `yaml:"mean_minutes"`

	// Skill names the capability a worker must advertise to be offered
	// tasks of this type.
	Skill string `yaml:"skill"`

	// BasePayout is the fee before the SLA bonus or penalty is applied.
	BasePayout float64 `yaml:"base_payout"`

	// SLAMinutes is the wait, arrival to completion, within which the task
	// counts as on time.
	SLAMinutes float64 `yaml:"sla_minutes"`
}

// Payout returns the fee for a completed task given its total wait: the base
// payout with a 10% bonus within the SLA, or a 10% penalty beyond it.
func (t *TaskType) Payout(waitMinutes float64) float64 {
	if waitMinutes <= t.SLAMinutes {
		return t.BasePayout * 1.1
	}
	return t.BasePayout * 0.9
}

// PropertyNode is a fixed site that generates tasks. TaskRates maps
// task-type names to expected arrivals per hour; each rate is sampled once
// per virtual minute, so a property yields at most one new task per type per
// minute.
type PropertyNode struct {
	ID        int                `yaml:"id"`
	Name      string             `yaml:"name"`
	Lat       float64            `yaml:"lat"`
	Lon       float64            `yaml:"lon"`
	TaskRates map[string]float64 `yaml:"task_rates"`
}

// Worker is a mobile service worker. Position is fixed for the whole run;
// travel is modeled as elapsed time only, not movement. A worker carries no
// busy flag: it models a crew that can hold overlapping assignments, each
// one progressing independently. Set [Config.ExclusiveWorkers] to reserve
// workers for one task at a time instead.
type Worker struct {
	ID     int      `yaml:"id"`
	Name   string   `yaml:"name"`
	Lat    float64  `yaml:"lat"`
	Lon    float64  `yaml:"lon"`
	Skills []string `yaml:"skills"`

	// SpeedKmph is the travel speed used to turn distance into travel time.
	SpeedKmph float64 `yaml:"speed_kmph"`

	// Acceptance is the probability the worker accepts any single offer.
	Acceptance float64 `yaml:"acceptance"`

	// Reliability is the probability an accepted task completes
	// successfully.
	Reliability float64 `yaml:"reliability"`
}

// HasSkill reports whether the worker advertises the given skill.
func (w *Worker) HasSkill(skill string) bool {
	return slices.Contains(w.Skills, skill)
}
