// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	dsim "github.com/taskfleet/dsim-go"
)

// scenarioSchema constrains scenario files before they are decoded. CUE
// reports violations with their path and the offending value, which beats
// hunting for a typo in a long YAML document. The definitions are closed,
// so misspelled field names are rejected rather than silently dropped.
const scenarioSchema = `
#Scenario: {
	properties?: [...#Property]
	workers?: [...#Worker]
	task_types?: {[string]: #TaskType}
	scheduled?: [...#Scheduled]
}

#Property: {
	id:    int & >=0
	name?: string
	lat:   number & >=-90 & <=90
	lon:   number & >=-180 & <=180
	task_rates?: {[string]: number & >=0}
}

#Worker: {
	id:    int & >=0
	name?: string
	lat:   number & >=-90 & <=90
	lon:   number & >=-180 & <=180
	skills?: [...string]
	speed_kmph:  number & >0
	acceptance:  number & >=0 & <=1
	reliability: number & >=0 & <=1
}

#TaskType: {
	name?:        string
	mean_minutes: number & >0
	skill:        string & !=""
	base_payout:  number & >=0
	sla_minutes:  number & >0
}

#Scheduled: {
	name?:       string
	property_id: int & >=0
	type:        string & !=""
	cron:        string & !=""
}
`

// LoadScenario reads, schema-checks, and decodes a YAML scenario file.
// Names and catalog keys are NFC-normalized so the emitted log does not
// depend on the file's Unicode normalization form.
func LoadScenario(path string) (*dsim.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	if err := checkScenarioSchema(path, data); err != nil {
		return nil, err
	}
	var sc dsim.Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	normalizeScenario(&sc)
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// checkScenarioSchema unifies the file's contents with the embedded schema
// and rejects wrong shapes, out-of-range values, and unknown fields.
func checkScenarioSchema(path string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("parse scenario %s: %w", path, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse scenario %s: %w", path, err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("scenario %s: %w", path, err)
	}
	return nil
}

// normalizeScenario rewrites every name, catalog key, and skill to NFC.
// Cross-references (task_rates keys, worker skills, scheduled types) are
// normalized the same way, so references written in a different form than
// their targets still match.
func normalizeScenario(sc *dsim.Scenario) {
	if sc.TaskTypes != nil {
		types := make(map[string]dsim.TaskType, len(sc.TaskTypes))
		for name, tt := range sc.TaskTypes {
			tt.Name = norm.NFC.String(tt.Name)
			tt.Skill = norm.NFC.String(tt.Skill)
			types[norm.NFC.String(name)] = tt
		}
		sc.TaskTypes = types
	}
	for i := range sc.Properties {
		p := &sc.Properties[i]
		p.Name = norm.NFC.String(p.Name)
		if p.TaskRates != nil {
			rates := make(map[string]float64, len(p.TaskRates))
			for name, rate := range p.TaskRates {
				rates[norm.NFC.String(name)] = rate
			}
			p.TaskRates = rates
		}
	}
	for i := range sc.Workers {
		w := &sc.Workers[i]
		w.Name = norm.NFC.String(w.Name)
		for j, skill := range w.Skills {
			w.Skills[j] = norm.NFC.String(skill)
		}
	}
	for i := range sc.Scheduled {
		st := &sc.Scheduled[i]
		st.Name = norm.NFC.String(st.Name)
		st.TaskType = norm.NFC.String(st.TaskType)
	}
}
