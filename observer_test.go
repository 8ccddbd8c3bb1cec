// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskfleet/dsim-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobs "go.uber.org/zap/zaptest/observer"
)

// recorder is an Observer that keeps every record it sees.
type recorder struct {
	recs []dsim.EventRecord
}

func (r *recorder) Record(rec dsim.EventRecord) {
	r.recs = append(r.recs, rec)
}

func TestObserverSeesEveryRecordInOrder(t *testing.T) {
	chk := require.New(t)
	rec := &recorder{}
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
	r, err := dsim.Run(dsim.Config{Horizon: 10, Seed: 1, Observer: rec}, sc)
	chk.NoError(err)
	chk.NotEmpty(rec.recs)
	chk.Equal(r.Events, rec.recs)
}

func TestZapObserverEmitsStructuredEntries(t *testing.T) {
	chk := require.New(t)
	core, logged := zapobs.New(zapcore.InfoLevel)
	obs := dsim.NewZapObserver(zap.New(core))

	obs.Record(dsim.EventRecord{
		Time:     1,
		Kind:     dsim.KindNoCandidates,
		TaskID:   "T1-1-0001",
		Property: "Depot",
		TaskType: "Maintenance",
		WorkerID: dsim.UnmatchedWorkerID,
	})
	obs.Record(dsim.EventRecord{
		Time:          42.5,
		Kind:          dsim.KindCompleted,
		TaskID:        "T2-1-0002",
		Property:      "Depot",
		TaskType:      "Maintenance",
		WorkerID:      3,
		DistanceKm:    5,
		TravelMinutes: 15,
		WorkMinutes:   26.5,
		WaitMinutes:   41.5,
		WithinSLA:     true,
		Payout:        38.5,
	})

	entries := logged.All()
	chk.Len(entries, 2)

	chk.Equal(string(dsim.KindNoCandidates), entries[0].Message)
	first := entries[0].ContextMap()
	chk.Equal("T1-1-0001", first["task_id"])
	chk.NotContains(first, "worker_id")

	chk.Equal(string(dsim.KindCompleted), entries[1].Message)
	second := entries[1].ContextMap()
	chk.Equal(int64(3), second["worker_id"])
	chk.Equal(38.5, second["payout"])
	chk.Equal(true, second["within_sla"])
}
