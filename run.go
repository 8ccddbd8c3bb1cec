// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRadiusKm is the candidate search radius used when
// [Config.MaxRadiusKm] is zero.
const DefaultMaxRadiusKm = 15.0

// defaultEpoch anchors cron schedules when [Config.Epoch] is zero. It is a
// Monday at midnight UTC so weekday-qualified schedules behave predictably.
var defaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Config carries the per-run knobs. The zero value is not runnable; at
// minimum Horizon must be set.
type Config struct {
	// Horizon is the virtual time in minutes at which the run stops. It
	// must be positive and finite.
	Horizon float64

	// MaxRadiusKm bounds the candidate search around a property. Zero
	// selects [DefaultMaxRadiusKm]; negative values are rejected.
	MaxRadiusKm float64

	// Seed initializes the run's random stream. Runs with equal seeds,
	// configurations, and scenarios produce identical results.
	Seed uint64

	// ExclusiveWorkers reserves a worker from offer acceptance until its
	// task reaches a terminal state; a reserved worker declines further
	// offers. When false, a worker can hold overlapping assignments.
	ExclusiveWorkers bool

	// Epoch maps virtual minute zero onto wall-clock time for
	// cron-scheduled tasks. The zero value selects a fixed Monday-midnight
	// UTC epoch, keeping runs reproducible across invocation dates.
	Epoch time.Time

	// Observer, when non-nil, receives each event record as it is
	// appended to the log.
	Observer Observer
}

func (c *Config) validate() error {
	if !(c.Horizon > 0) || math.IsInf(c.Horizon, 0) {
		return fmt.Errorf("%w: horizon must be positive and finite (got %v)", ErrInvalidConfig, c.Horizon)
	}
	if c.MaxRadiusKm < 0 || math.IsNaN(c.MaxRadiusKm) {
		return fmt.Errorf("%w: max radius must be >= 0 (got %v)", ErrInvalidConfig, c.MaxRadiusKm)
	}
	return nil
}

func (c *Config) radius() float64 {
	if c.MaxRadiusKm == 0 {
		return DefaultMaxRadiusKm
	}
	return c.MaxRadiusKm
}

func (c *Config) epoch() time.Time {
	if c.Epoch.IsZero() {
		return defaultEpoch
	}
	return c.Epoch
}

// Result is the outcome of a completed run.
type Result struct {
	// RunID is a UUID drawn from the run's random stream, so it is itself
	// reproducible from the seed.
	RunID string

	Seed    uint64
	Horizon float64

	// Events holds the full log in emission order.
	Events []EventRecord

	// Tasks counts every task raised before the horizon, including those
	// still mid-lifecycle when the run stopped.
	Tasks int

	// Abandoned counts tasks the horizon cut off before a terminal state,
	// so Tasks == len(Events) + Abandoned.
	Abandoned int

	// Spawned counts every simulation process the run created: one per
	// property generator, per scheduled-task entry, and per task.
	Spawned int

	// Elapsed is the wall-clock time the run took. Unlike every other
	// field it is not reproducible from the seed.
	Elapsed time.Duration
}

// simulation wires one run together: the engine, the random stream, the
// scenario, and the growing log.
type simulation struct {
	cfg        Config
	sc         *Scenario
	catalog    map[string]TaskType
	eng        *Engine
	rng        *rand.Rand
	log        *Log
	taskSeq    int
	reservedBy map[int]string
}

// Run executes the scenario on a fresh virtual clock until cfg.Horizon and
// returns the accumulated event log. It fails fast on an invalid
// configuration or scenario. A run never blocks and performs no I/O, so
// there is nothing to cancel; wrap the call in a goroutine if the caller
// needs to abandon very large runs.
func Run(cfg Config, sc *Scenario) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	cfg.MaxRadiusKm = cfg.radius()
	started := time.Now()

	s := &simulation{
		cfg:     cfg,
		sc:      sc,
		catalog: make(map[string]TaskType, len(sc.TaskTypes)),
		eng:     NewEngine(),
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		log:     &Log{},
	}
	for name, tt := range sc.TaskTypes {
		tt.Name = name
		s.catalog[name] = tt
	}
	if cfg.ExclusiveWorkers {
		s.reservedBy = make(map[int]string, len(sc.Workers))
	}

	// The run id is the stream's first draw, keeping event draws aligned
	// whether or not the caller inspects it.
	runID, err := uuid.NewRandomFromReader(rngReader{s.rng})
	if err != nil {
		return nil, fmt.Errorf("derive run id: %w", err)
	}

	for i := range sc.Properties {
		s.spawnGenerator(&sc.Properties[i])
	}
	for _, st := range sc.Scheduled {
		sched, err := cronParser.Parse(st.Cron)
		if err != nil {
			return nil, fmt.Errorf("%w: scheduled task cron %q: %v", ErrInvalidScenario, st.Cron, err)
		}
		s.spawnScheduler(sc.property(st.PropertyID), s.catalog[st.TaskType], sched, st.Name)
	}

	s.eng.Run(cfg.Horizon)

	return &Result{
		RunID:     runID.String(),
		Seed:      cfg.Seed,
		Horizon:   cfg.Horizon,
		Events:    s.log.Records(),
		Tasks:     s.taskSeq,
		Abandoned: s.taskSeq - s.log.Len(),
		Spawned:   s.eng.Spawned(),
		Elapsed:   time.Since(started),
	}, nil
}

// newTaskID allocates the next task id. The trailing element is a
// run-global monotonic counter, so ids stay unique even when several tasks
// arise at the same property in the same minute.
func (s *simulation) newTaskID(prop *PropertyNode) string {
	s.taskSeq++
	return fmt.Sprintf("T%d-%d-%04d", int(s.eng.Now()), prop.ID, s.taskSeq)
}

func (s *simulation) emit(rec EventRecord) {
	s.log.Append(rec)
	if s.cfg.Observer != nil {
		s.cfg.Observer.Record(rec)
	}
}

func (s *simulation) reserved(w *Worker) bool {
	if s.reservedBy == nil {
		return false
	}
	_, ok := s.reservedBy[w.ID]
	return ok
}

func (s *simulation) reserve(w *Worker, taskID string) {
	if s.reservedBy != nil {
		s.reservedBy[w.ID] = taskID
	}
}

func (s *simulation) release(w *Worker) {
	if s.reservedBy != nil {
		delete(s.reservedBy, w.ID)
	}
}

// rngReader adapts the run's random stream to io.Reader for deriving the
// run id.
type rngReader struct {
	rng *rand.Rand
}

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint64())
	}
	return len(p), nil
}
