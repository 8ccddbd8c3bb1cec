// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim_test

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
	"github.com/taskfleet/dsim-go"
	"pgregory.net/rapid"
)

const (
	depotLat = 40.7128
	depotLon = -74.0060
)

// latKmNorth returns a latitude the given number of kilometers north of
// depotLat. Due north makes the haversine distance exact, so derived travel
// times are exact too.
func latKmNorth(km float64) float64 {
	return depotLat + km/dsim.EarthRadiusKm*180/math.Pi
}

var taskIDPattern = regexp.MustCompile(`^T\d+-\d+-\d{4,}$`)

func TestRunCompletesTasks(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:        1,
			Name:      "Depot",
			Lat:       depotLat,
			Lon:       depotLon,
			TaskRates: map[string]float64{"Maintenance": 60},
		}},
		Workers: []dsim.Worker{{
			ID:          0,
			Name:        "Crew-000",
			Lat:         latKmNorth(5),
			Lon:         depotLon,
			Skills:      []string{"tech"},
			SpeedKmph:   20,
			Acceptance:  1,
			Reliability: 1,
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Maintenance": {MeanMinutes: 60, Skill: "tech", BasePayout: 35, SLAMinutes: 1e6},
		},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 120, Seed: 7}, sc)
	chk.NoError(err)

	// One arrival per minute from 1 through 119.
	chk.Equal(119, r.Tasks)
	chk.NotEmpty(r.Events)
	chk.Equal(r.Tasks, len(r.Events)+r.Abandoned)
	chk.Len(r.RunID, 36)

	for _, rec := range r.Events {
		chk.Equal(dsim.KindCompleted, rec.Kind)
		chk.Equal(0, rec.WorkerID)
		chk.Equal("Depot", rec.Property)
		chk.Equal(1, rec.PropertyID)
		chk.Equal("Maintenance", rec.TaskType)
		chk.Regexp(taskIDPattern, rec.TaskID)
		chk.InDelta(5, rec.DistanceKm, 1e-9)
		chk.InDelta(15, rec.TravelMinutes, 1e-6)
		chk.GreaterOrEqual(rec.WorkMinutes, 1.0)
		chk.InDelta(rec.TravelMinutes+rec.WorkMinutes, rec.WaitMinutes, 1e-9)
		chk.True(rec.WithinSLA)
		chk.InDelta(35*1.1, rec.Payout, 1e-9)
		chk.Less(rec.Time, 120.0)

		// With a sole always-accepting worker the task starts on arrival,
		// at a whole minute.
		start := rec.Time - rec.WaitMinutes
		chk.InDelta(math.Round(start), start, 1e-6)
	}
}

func TestRunZeroWorkersAllNoCandidates(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:        1,
			Name:      "Depot",
			Lat:       depotLat,
			Lon:       depotLon,
			TaskRates: map[string]float64{"Maintenance": 60},
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Maintenance": {MeanMinutes: 60, Skill: "tech", BasePayout: 35, SLAMinutes: 240},
		},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 10, Seed: 1}, sc)
	chk.NoError(err)

	chk.Len(r.Events, 9)
	chk.Equal(9, r.Tasks)
	chk.Zero(r.Abandoned)
	for i, rec := range r.Events {
		chk.Equal(float64(i+1), rec.Time)
		chk.Equal(dsim.KindNoCandidates, rec.Kind)
		chk.Equal(dsim.UnmatchedWorkerID, rec.WorkerID)
		chk.Zero(rec.DistanceKm)
		chk.Zero(rec.WaitMinutes)
		chk.False(rec.WithinSLA)
		chk.Zero(rec.Payout)
	}
	chk.Equal("T1-1-0001", r.Events[0].TaskID)
}

func TestRunZeroAcceptanceUnaccepted(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:        1,
			Name:      "Depot",
			Lat:       depotLat,
			Lon:       depotLon,
			TaskRates: map[string]float64{"Maintenance": 60},
		}},
		Workers: []dsim.Worker{{
			ID:          0,
			Name:        "Crew-000",
			Lat:         latKmNorth(5),
			Lon:         depotLon,
			Skills:      []string{"tech"},
			SpeedKmph:   20,
			Acceptance:  0,
			Reliability: 1,
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Maintenance": {MeanMinutes: 60, Skill: "tech", BasePayout: 35, SLAMinutes: 240},
		},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 5, Seed: 3}, sc)
	chk.NoError(err)

	// Arrivals at minutes 1 through 4. Each burns one offer and lands its
	// unaccepted record a minute later; the minute-4 arrival's record would
	// fall exactly on the horizon and is cut off instead.
	chk.Equal(4, r.Tasks)
	chk.Len(r.Events, 3)
	chk.Equal(1, r.Abandoned)
	for i, rec := range r.Events {
		chk.Equal(dsim.KindUnaccepted, rec.Kind)
		chk.Equal(float64(i+2), rec.Time)
		chk.Equal(dsim.UnmatchedWorkerID, rec.WorkerID)
		chk.Zero(rec.Payout)
	}
}

func TestRunOfferWindowStopsAtTenCandidates(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:   1,
			Name: "Depot",
			Lat:  depotLat,
			Lon:  depotLon,
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Maintenance": {MeanMinutes: 60, Skill: "tech", BasePayout: 35, SLAMinutes: 240},
		},
		Scheduled: []dsim.ScheduledTask{{
			Name:       "half past",
			PropertyID: 1,
			TaskType:   "Maintenance",
			Cron:       "30 * * * *",
		}},
	}
	for i := 0; i < 12; i++ {
		sc.Workers = append(sc.Workers, dsim.Worker{
			ID:          i,
			Lat:         depotLat,
			Lon:         depotLon,
			Skills:      []string{"tech"},
			SpeedKmph:   20,
			Acceptance:  0,
			Reliability: 1,
		})
	}
	r, err := dsim.Run(dsim.Config{Horizon: 45, Seed: 5}, sc)
	chk.NoError(err)

	// The task fires at minute 30. Twelve candidates are in range but only
	// the ten nearest are offered, so the unaccepted record lands after ten
	// one-minute declines.
	chk.Equal(1, r.Tasks)
	chk.Len(r.Events, 1)
	chk.Equal(dsim.KindUnaccepted, r.Events[0].Kind)
	chk.Equal(40.0, r.Events[0].Time)
}

func TestRunFiltersBySkillAndRadius(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:        1,
			Name:      "Depot",
			Lat:       depotLat,
			Lon:       depotLon,
			TaskRates: map[string]float64{"Maintenance": 60},
		}},
		Workers: []dsim.Worker{
			{
				// Right skill, far outside the radius.
				ID: 0, Name: "Far", Lat: latKmNorth(100), Lon: depotLon,
				Skills: []string{"tech"}, SpeedKmph: 20, Acceptance: 1, Reliability: 1,
			},
			{
				// In range, wrong skill.
				ID: 1, Name: "Near", Lat: depotLat, Lon: depotLon,
				Skills: []string{"clean"}, SpeedKmph: 20, Acceptance: 1, Reliability: 1,
			},
		},
		TaskTypes: map[string]dsim.TaskType{
			"Maintenance": {MeanMinutes: 60, Skill: "tech", BasePayout: 35, SLAMinutes: 240},
		},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 3, Seed: 2}, sc)
	chk.NoError(err)

	chk.Len(r.Events, 2)
	for _, rec := range r.Events {
		chk.Equal(dsim.KindNoCandidates, rec.Kind)
	}
}

func TestRunEquidistantCandidatesRankByWorkerID(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:   1,
			Name: "Depot",
			Lat:  depotLat,
			Lon:  depotLon,
		}},
		// Listed high id first to show ranking ignores scenario order.
		Workers: []dsim.Worker{
			{
				ID: 5, Name: "Crew-005", Lat: depotLat, Lon: depotLon,
				Skills: []string{"audit"}, SpeedKmph: 20, Acceptance: 1, Reliability: 1,
			},
			{
				ID: 2, Name: "Crew-002", Lat: depotLat, Lon: depotLon,
				Skills: []string{"audit"}, SpeedKmph: 20, Acceptance: 1, Reliability: 1,
			},
		},
		TaskTypes: map[string]dsim.TaskType{
			"Audit": {MeanMinutes: 5, Skill: "audit", BasePayout: 12, SLAMinutes: 1e6},
		},
		Scheduled: []dsim.ScheduledTask{{
			PropertyID: 1,
			TaskType:   "Audit",
			Cron:       "30 * * * *",
		}},
	}
	// The schedule's second occurrence falls exactly on the horizon and is
	// excluded, so exactly one task runs.
	r, err := dsim.Run(dsim.Config{Horizon: 90, Seed: 4}, sc)
	chk.NoError(err)

	chk.Len(r.Events, 1)
	rec := r.Events[0]
	chk.Equal(dsim.KindCompleted, rec.Kind)
	chk.Equal(2, rec.WorkerID)
	chk.Zero(rec.DistanceKm)
	chk.Zero(rec.TravelMinutes)
	chk.InDelta(12*1.1, rec.Payout, 1e-9)
}

func TestRunScheduledTaskFiresOnCronOccurrences(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:   3,
			Name: "Mall",
			Lat:  depotLat,
			Lon:  depotLon,
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Audit": {MeanMinutes: 20, Skill: "audit", BasePayout: 12, SLAMinutes: 120},
		},
		Scheduled: []dsim.ScheduledTask{{
			Name:       "audit sweep",
			PropertyID: 3,
			TaskType:   "Audit",
			Cron:       "*/30 * * * *",
		}},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 100, Seed: 9}, sc)
	chk.NoError(err)

	// Every half hour, excluding minute zero: the schedule only matches
	// times strictly after the epoch.
	chk.Len(r.Events, 3)
	for i, rec := range r.Events {
		chk.Equal(float64(30*(i+1)), rec.Time)
		chk.Equal(dsim.KindNoCandidates, rec.Kind)
		chk.Equal("Audit", rec.TaskType)
		chk.Equal("Mall", rec.Property)
	}
}

func TestRunScheduledWeekdayAnchorsToEpoch(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:   1,
			Name: "Depot",
			Lat:  depotLat,
			Lon:  depotLon,
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Audit": {MeanMinutes: 20, Skill: "audit", BasePayout: 12, SLAMinutes: 120},
		},
		Scheduled: []dsim.ScheduledTask{{
			Name:       "tuesday audit",
			PropertyID: 1,
			TaskType:   "Audit",
			Cron:       "0 0 * * 2",
		}},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 1500, Seed: 9}, sc)
	chk.NoError(err)

	// The default epoch is a Monday midnight, so a Tuesday-midnight
	// schedule first fires one day in.
	chk.Len(r.Events, 1)
	chk.Equal(1440.0, r.Events[0].Time)
}

func TestRunExclusiveWorkersNeverOverlap(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{
			{ID: 1, Name: "North", Lat: depotLat, Lon: depotLon,
				TaskRates: map[string]float64{"Cleaning": 60}},
			{ID: 2, Name: "South", Lat: depotLat, Lon: depotLon,
				TaskRates: map[string]float64{"Cleaning": 60}},
		},
		Workers: []dsim.Worker{{
			ID: 0, Name: "Solo", Lat: depotLat, Lon: depotLon,
			Skills: []string{"clean"}, SpeedKmph: 20, Acceptance: 1, Reliability: 1,
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Cleaning": {MeanMinutes: 2, Skill: "clean", BasePayout: 25, SLAMinutes: 1e6},
		},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 120, Seed: 8, ExclusiveWorkers: true}, sc)
	chk.NoError(err)

	var completed, unaccepted int
	var busy [][2]float64
	for _, rec := range r.Events {
		switch rec.Kind {
		case dsim.KindCompleted:
			completed++
			busy = append(busy, [2]float64{rec.Time - rec.WorkMinutes - rec.TravelMinutes, rec.Time})
		case dsim.KindUnaccepted:
			unaccepted++
		default:
			t.Fatalf("unexpected event kind %s", rec.Kind)
		}
	}
	// Both properties raise a task every minute but the sole worker is
	// reserved while working, so offers made mid-task are declined.
	chk.Positive(completed)
	chk.Positive(unaccepted)

	// Emission order sorts busy spans by end; with exclusivity they must
	// also be disjoint.
	for i := 1; i < len(busy); i++ {
		chk.GreaterOrEqual(busy[i][0], busy[i-1][1]-1e-9)
	}
}

func TestRunDeterministicForSeed(t *testing.T) {
	chk := require.New(t)
	sc := dsim.DefaultScenario(rand.New(rand.NewPCG(42, 42)), 6, 30)
	cfg := dsim.Config{Horizon: 180, Seed: 21}

	r1, err := dsim.Run(cfg, sc)
	chk.NoError(err)
	r2, err := dsim.Run(cfg, sc)
	chk.NoError(err)

	chk.Equal(r1.RunID, r2.RunID)
	chk.Equal(r1.Tasks, r2.Tasks)
	chk.Equal(r1.Events, r2.Events)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	chk := require.New(t)
	sc := validScenario()

	_, err := dsim.Run(dsim.Config{Horizon: 0}, sc)
	chk.ErrorIs(err, dsim.ErrInvalidConfig)

	_, err = dsim.Run(dsim.Config{Horizon: 60, MaxRadiusKm: -1}, sc)
	chk.ErrorIs(err, dsim.ErrInvalidConfig)

	sc.Workers[0].Acceptance = 2
	_, err = dsim.Run(dsim.Config{Horizon: 60}, sc)
	chk.ErrorIs(err, dsim.ErrInvalidScenario)
}

// checkRunInvariants asserts the record-level relationships that must hold
// for any run of any scenario.
func checkRunInvariants(chk *require.Assertions, cfg dsim.Config, sc *dsim.Scenario, r *dsim.Result) {
	radius := cfg.MaxRadiusKm
	if radius == 0 {
		radius = dsim.DefaultMaxRadiusKm
	}
	workers := make(map[int]*dsim.Worker, len(sc.Workers))
	for i := range sc.Workers {
		workers[sc.Workers[i].ID] = &sc.Workers[i]
	}

	chk.Equal(r.Tasks, len(r.Events)+r.Abandoned)
	seen := make(map[string]bool, len(r.Events))
	for i := range r.Events {
		rec := &r.Events[i]

		chk.GreaterOrEqual(rec.Time, 0.0)
		chk.Less(rec.Time, r.Horizon)
		chk.Regexp(taskIDPattern, rec.TaskID)
		chk.False(seen[rec.TaskID], "duplicate task id %s", rec.TaskID)
		seen[rec.TaskID] = true

		tt, ok := sc.TaskTypes[rec.TaskType]
		chk.True(ok, "unknown task type %s", rec.TaskType)

		if !rec.Kind.Matched() {
			chk.Equal(dsim.UnmatchedWorkerID, rec.WorkerID)
			chk.Zero(rec.DistanceKm)
			chk.Zero(rec.TravelMinutes)
			chk.Zero(rec.WorkMinutes)
			chk.Zero(rec.WaitMinutes)
			chk.False(rec.WithinSLA)
			chk.Zero(rec.Payout)
			continue
		}

		w, ok := workers[rec.WorkerID]
		chk.True(ok, "unknown worker id %d", rec.WorkerID)
		chk.True(w.HasSkill(tt.Skill))
		chk.LessOrEqual(rec.DistanceKm, radius)
		chk.InDelta(dsim.TravelMinutes(rec.DistanceKm, w.SpeedKmph), rec.TravelMinutes, 1e-9)
		chk.GreaterOrEqual(rec.WorkMinutes, 1.0)
		chk.Equal(rec.WaitMinutes <= tt.SLAMinutes, rec.WithinSLA)

		// Wait decomposes into whole-minute offer declines plus travel plus
		// work, with at most nine declines before an acceptance.
		declines := rec.WaitMinutes - rec.TravelMinutes - rec.WorkMinutes
		chk.InDelta(math.Round(declines), declines, 1e-6)
		chk.GreaterOrEqual(math.Round(declines), 0.0)
		chk.LessOrEqual(math.Round(declines), 9.0)

		switch rec.Kind {
		case dsim.KindCompleted:
			want := tt.BasePayout * 0.9
			if rec.WithinSLA {
				want = tt.BasePayout * 1.1
			}
			chk.InDelta(want, rec.Payout, 1e-9)
		case dsim.KindFailed:
			chk.Zero(rec.Payout)
		}
	}
}

func TestRunDefaultScenarioInvariants(t *testing.T) {
	chk := require.New(t)
	sc := dsim.DefaultScenario(rand.New(rand.NewPCG(11, 11)), 25, 120)
	cfg := dsim.Config{Horizon: 360, Seed: 5}
	r, err := dsim.Run(cfg, sc)
	chk.NoError(err)

	chk.NotEmpty(r.Events)
	chk.Equal(len(sc.Properties)+r.Tasks, r.Spawned)
	checkRunInvariants(chk, cfg, sc, r)
}

func TestRunInvariantsBySimulation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		scSeed := rapid.Uint64().Draw(t, "scSeed")
		numProps := rapid.IntRange(1, 8).Draw(t, "numProps")
		numWorkers := rapid.IntRange(0, 30).Draw(t, "numWorkers")
		sc := dsim.DefaultScenario(rand.New(rand.NewPCG(scSeed, scSeed)), numProps, numWorkers)

		cfg := dsim.Config{
			Horizon:          rapid.Float64Range(30, 240).Draw(t, "horizon"),
			MaxRadiusKm:      rapid.Float64Range(5, 30).Draw(t, "radius"),
			Seed:             rapid.Uint64().Draw(t, "seed"),
			ExclusiveWorkers: rapid.Bool().Draw(t, "exclusive"),
		}
		r, err := dsim.Run(cfg, sc)
		chk.NoError(err)
		checkRunInvariants(chk, cfg, sc, r)

		if cfg.ExclusiveWorkers {
			busyByWorker := make(map[int][][2]float64)
			for _, rec := range r.Events {
				if rec.Kind.Matched() {
					busyByWorker[rec.WorkerID] = append(busyByWorker[rec.WorkerID],
						[2]float64{rec.Time - rec.WorkMinutes - rec.TravelMinutes, rec.Time})
				}
			}
			for id, busy := range busyByWorker {
				for i := 1; i < len(busy); i++ {
					chk.GreaterOrEqual(busy[i][0], busy[i-1][1]-1e-9,
						"worker %d held overlapping tasks", id)
				}
			}
		}
	})
}

func TestRunGoldenLog(t *testing.T) {
	chk := require.New(t)
	sc := &dsim.Scenario{
		Properties: []dsim.PropertyNode{{
			ID:        1,
			Name:      "Depot",
			Lat:       depotLat,
			Lon:       depotLon,
			TaskRates: map[string]float64{"Maintenance": 60},
		}},
		TaskTypes: map[string]dsim.TaskType{
			"Maintenance": {MeanMinutes: 60, Skill: "tech", BasePayout: 35, SLAMinutes: 240},
		},
	}
	r, err := dsim.Run(dsim.Config{Horizon: 5, Seed: 99}, sc)
	chk.NoError(err)

	data, err := json.MarshalIndent(r.Events, "", "  ")
	chk.NoError(err)
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "zero_worker_log", data)
}
