// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import "go.uber.org/zap"

// Observer receives event records as a run appends them, in log order.
// Implementations run synchronously on the simulation goroutine, so they
// should be fast and must not call back into the run.
type Observer interface {
	Record(rec EventRecord)
}

// NopObserver discards every record.
type NopObserver struct{}

func (NopObserver) Record(EventRecord) {}

// ZapObserver logs each record as a structured entry, useful for tailing a
// long run as it progresses. The entries mirror the returned event slice;
// they are a view of the log, not a substitute for it.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver returns an observer writing to logger.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	return &ZapObserver{logger: logger}
}

func (o *ZapObserver) Record(rec EventRecord) {
	fields := []zap.Field{
		zap.Float64("time", rec.Time),
		zap.String("task_id", rec.TaskID),
		zap.String("property", rec.Property),
		zap.String("type", rec.TaskType),
	}
	if rec.Kind.Matched() {
		fields = append(fields,
			zap.Int("worker_id", rec.WorkerID),
			zap.Float64("distance_km", rec.DistanceKm),
			zap.Float64("travel_minutes", rec.TravelMinutes),
			zap.Float64("work_minutes", rec.WorkMinutes),
			zap.Float64("wait_minutes", rec.WaitMinutes),
			zap.Bool("within_sla", rec.WithinSLA),
			zap.Float64("payout", rec.Payout),
		)
	}
	o.logger.Info(string(rec.Kind), fields...)
}
