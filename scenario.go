// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"fmt"
	"math"
	"slices"

	"github.com/robfig/cron/v3"
)

// Scenario is the static world description for a run: the property set, the
// worker fleet, the task-type catalog, and any cron-scheduled tasks. A
// Scenario is not mutated by [Run], so the same value can back any number of
// runs.
type Scenario struct {
	Properties []PropertyNode      `yaml:"properties"`
	Workers    []Worker            `yaml:"workers"`
	TaskTypes  map[string]TaskType `yaml:"task_types"`
	Scheduled  []ScheduledTask     `yaml:"scheduled,omitempty"`
}

// ScheduledTask raises a task of a known type at a property on a recurring
// cron schedule instead of by random arrival. Cron is a standard five-field
// spec (descriptors such as @hourly are also accepted), evaluated against
// [Config.Epoch].
type ScheduledTask struct {
	Name       string `yaml:"name,omitempty"`
	PropertyID int    `yaml:"property_id"`
	TaskType   string `yaml:"type"`
	Cron       string `yaml:"cron"`
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks the scenario for internal consistency and returns an error
// wrapping [ErrInvalidScenario] describing the first problem found. Problems
// are reported in a fixed order regardless of map iteration, so the same
// broken scenario always yields the same error.
func (sc *Scenario) Validate() error {
	names := make([]string, 0, len(sc.TaskTypes))
	for name := range sc.TaskTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := validateTaskType(name, sc.TaskTypes[name]); err != nil {
			return err
		}
	}

	propIDs := make(map[int]bool, len(sc.Properties))
	for i := range sc.Properties {
		p := &sc.Properties[i]
		if p.ID < 0 {
			return fmt.Errorf("%w: property %q: id must be >= 0 (got %d)", ErrInvalidScenario, p.Name, p.ID)
		}
		if propIDs[p.ID] {
			return fmt.Errorf("%w: duplicate property id %d", ErrInvalidScenario, p.ID)
		}
		propIDs[p.ID] = true
		if err := validateCoords(fmt.Sprintf("property %q", p.Name), p.Lat, p.Lon); err != nil {
			return err
		}
		rateNames := make([]string, 0, len(p.TaskRates))
		for name := range p.TaskRates {
			rateNames = append(rateNames, name)
		}
		slices.Sort(rateNames)
		for _, name := range rateNames {
			if _, ok := sc.TaskTypes[name]; !ok {
				return fmt.Errorf("%w: property %q: rate references unknown task type %q", ErrInvalidScenario, p.Name, name)
			}
			if rate := p.TaskRates[name]; !(rate >= 0) || math.IsInf(rate, 0) {
				return fmt.Errorf("%w: property %q: rate for %q must be >= 0 and finite (got %v)", ErrInvalidScenario, p.Name, name, rate)
			}
		}
	}

	workerIDs := make(map[int]bool, len(sc.Workers))
	for i := range sc.Workers {
		w := &sc.Workers[i]
		if w.ID < 0 {
			return fmt.Errorf("%w: worker %q: id must be >= 0 (got %d)", ErrInvalidScenario, w.Name, w.ID)
		}
		if workerIDs[w.ID] {
			return fmt.Errorf("%w: duplicate worker id %d", ErrInvalidScenario, w.ID)
		}
		workerIDs[w.ID] = true
		if err := validateCoords(fmt.Sprintf("worker %q", w.Name), w.Lat, w.Lon); err != nil {
			return err
		}
		if !(w.SpeedKmph > 0) || math.IsInf(w.SpeedKmph, 0) {
			return fmt.Errorf("%w: worker %q: speed_kmph must be positive and finite (got %v)", ErrInvalidScenario, w.Name, w.SpeedKmph)
		}
		if err := validateProbability(fmt.Sprintf("worker %q: acceptance", w.Name), w.Acceptance); err != nil {
			return err
		}
		if err := validateProbability(fmt.Sprintf("worker %q: reliability", w.Name), w.Reliability); err != nil {
			return err
		}
	}

	for i := range sc.Scheduled {
		st := &sc.Scheduled[i]
		if !propIDs[st.PropertyID] {
			return fmt.Errorf("%w: scheduled task %d: unknown property id %d", ErrInvalidScenario, i, st.PropertyID)
		}
		if _, ok := sc.TaskTypes[st.TaskType]; !ok {
			return fmt.Errorf("%w: scheduled task %d: unknown task type %q", ErrInvalidScenario, i, st.TaskType)
		}
		if _, err := cronParser.Parse(st.Cron); err != nil {
			return fmt.Errorf("%w: scheduled task %d: cron %q: %v", ErrInvalidScenario, i, st.Cron, err)
		}
	}
	return nil
}

func validateTaskType(name string, tt TaskType) error {
	if name == "" {
		return fmt.Errorf("%w: task type with empty catalog key", ErrInvalidScenario)
	}
	if tt.Name != "" && tt.Name != name {
		return fmt.Errorf("%w: task type %q: name %q does not match its catalog key", ErrInvalidScenario, name, tt.Name)
	}
	if !(tt.MeanMinutes > 0) || math.IsInf(tt.MeanMinutes, 0) {
		return fmt.Errorf("%w: task type %q: mean_minutes must be positive and finite (got %v)", ErrInvalidScenario, name, tt.MeanMinutes)
	}
	if tt.Skill == "" {
		return fmt.Errorf("%w: task type %q: skill must not be empty", ErrInvalidScenario, name)
	}
	if !(tt.BasePayout >= 0) || math.IsInf(tt.BasePayout, 0) {
		return fmt.Errorf("%w: task type %q: base_payout must be >= 0 and finite (got %v)", ErrInvalidScenario, name, tt.BasePayout)
	}
	if !(tt.SLAMinutes > 0) || math.IsInf(tt.SLAMinutes, 0) {
		return fmt.Errorf("%w: task type %q: sla_minutes must be positive and finite (got %v)", ErrInvalidScenario, name, tt.SLAMinutes)
	}
	return nil
}

func validateCoords(subject string, lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("%w: %s: latitude must be within [-90, 90] (got %v)", ErrInvalidScenario, subject, lat)
	}
	if !(lon >= -180 && lon <= 180) {
		return fmt.Errorf("%w: %s: longitude must be within [-180, 180] (got %v)", ErrInvalidScenario, subject, lon)
	}
	return nil
}

func validateProbability(subject string, p float64) error {
	if !(p >= 0 && p <= 1) {
		return fmt.Errorf("%w: %s must be within [0, 1] (got %v)", ErrInvalidScenario, subject, p)
	}
	return nil
}

// property returns the property with the given id. It must only be called
// after validation has established that the id exists.
func (sc *Scenario) property(id int) *PropertyNode {
	for i := range sc.Properties {
		if sc.Properties[i].ID == id {
			return &sc.Properties[i]
		}
	}
	panic(fmt.Sprintf("no property with id %d", id))
}
