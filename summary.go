// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

// Summary aggregates a run's event log into the headline metrics: outcome
// counts, the completion and SLA rates, total payout, and mean wait. It is
// derived on demand and never stored, so it always reflects the log it was
// computed from.
type Summary struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Unaccepted   int `json:"unaccepted"`
	NoCandidates int `json:"no_candidates"`

	// CompletionRate is Completed over Total, or zero for an empty log.
	CompletionRate float64 `json:"completion_rate"`

	// WithinSLARate is the share of completed tasks inside their SLA, or
	// zero when nothing completed.
	WithinSLARate float64 `json:"within_sla_rate"`

	TotalPayout float64 `json:"total_payout"`

	// MeanWaitMinutes averages wait over completed tasks only.
	MeanWaitMinutes float64 `json:"mean_wait_minutes"`
}

// Summary derives aggregate metrics from the event log.
func (r *Result) Summary() Summary {
	var s Summary
	s.Total = len(r.Events)
	var waitSum float64
	var withinSLA int
	for i := range r.Events {
		rec := &r.Events[i]
		switch rec.Kind {
		case KindCompleted:
			s.Completed++
			waitSum += rec.WaitMinutes
			if rec.WithinSLA {
				withinSLA++
			}
		case KindFailed:
			s.Failed++
		case KindUnaccepted:
			s.Unaccepted++
		case KindNoCandidates:
			s.NoCandidates++
		}
		s.TotalPayout += rec.Payout
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total)
	}
	if s.Completed > 0 {
		s.WithinSLARate = float64(withinSLA) / float64(s.Completed)
		s.MeanWaitMinutes = waitSum / float64(s.Completed)
	}
	return s
}
