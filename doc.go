// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

// Package dsim simulates the dispatch of field-service tasks across a set of
// geographically distributed properties and a fleet of mobile workers. Tasks
// arise at properties, either at random per-hour rates or on cron schedules,
// and each one is walked through a full lifecycle: candidate search by skill
// and distance, sequential offers to the nearest workers, travel, on-site
// work, and a success or failure outcome with an SLA-adjusted payout. Every
// terminal outcome is appended to an event log that the caller receives when
// the run ends.
//
// Time is virtual. A run is driven by a single-threaded discrete-event
// [Engine] that keeps a priority queue of pending process resumptions and
// jumps the clock directly from one resumption to the next, so simulating
// twelve hours of activity takes milliseconds and never touches the wall
// clock. Processes are ordinary Go closures chained through [Proc.Suspend];
// there are no goroutines and no locks anywhere in a run.
//
// Runs are reproducible. All randomness flows from a single stream seeded by
// [Config.Seed], scheduling ties resolve in insertion order, and candidate
// ranking breaks distance ties by worker id, so two runs with the same seed,
// configuration, and scenario produce identical event logs. That determinism
// is what makes simulated dispatch policies comparable: change one knob,
// rerun, and diff the logs.
package dsim
