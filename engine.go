// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

import (
	"cmp"
	"math"

	"github.com/addrummond/heap"
)

// Engine is a single-threaded discrete-event scheduler. It keeps a virtual
// clock in fractional minutes and a priority queue of pending resumptions
// ordered by resumption time, with ties broken by scheduling order.
// Processes are registered with [Engine.Spawn] or [Engine.SpawnAfter] and
// advance by suspending themselves with [Proc.Suspend]; [Engine.Run] drains
// the queue up to a horizon.
//
// An Engine is not safe for concurrent use. Every process step runs on the
// caller's goroutine, one at a time, so steps may freely share state without
// synchronization.
type Engine struct {
	now     float64
	seq     int64
	queue   heap.Heap[resumption, heap.Min]
	queued  int
	spawned int
	live    int
}

// resumption is one scheduled continuation of a process.
type resumption struct {
	at   float64
	seq  int64
	proc *Proc
	fn   func()
}

func (a *resumption) Cmp(b *resumption) int {
	if c := cmp.Compare(a.at, b.at); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// NewEngine returns an engine with its clock at zero and nothing scheduled.
func NewEngine() *Engine {
	return &Engine{}
}

// Now returns the current virtual time in minutes.
func (e *Engine) Now() float64 {
	return e.now
}

// Spawn registers a new process whose first step runs at the current virtual
// time, after any resumptions already scheduled for that time.
func (e *Engine) Spawn(name string, first func()) *Proc {
	return e.SpawnAfter(0, name, first)
}

// SpawnAfter registers a new process whose first step runs delay minutes
// after the current virtual time. Like [Proc.Suspend], it panics if delay is
// negative or NaN.
func (e *Engine) SpawnAfter(delay float64, name string, first func()) *Proc {
	p := &Proc{engine: e, name: name}
	e.spawned++
	e.live++
	p.arm(delay, first)
	return p
}

// Run dispatches pending resumptions in (time, scheduling order) until the
// queue is empty or the next resumption would occur at or past until, then
// advances the clock to until if it lies ahead. A resumption scheduled
// exactly at until is not dispatched; calling Run again with a later horizon
// resumes where the previous call stopped. Processes left mid-suspension are
// abandoned rather than force-completed and remain counted by [Engine.Live].
func (e *Engine) Run(until float64) {
	for {
		next, ok := heap.Peek(&e.queue)
		if !ok || next.at >= until {
			break
		}
		r, _ := heap.PopOrderable(&e.queue)
		e.queued--
		e.now = r.at
		p := r.proc
		p.armed = false
		r.fn()
		if !p.armed {
			p.done = true
			e.live--
		}
	}
	if until > e.now {
		e.now = until
	}
}

// Pending returns the number of scheduled resumptions.
func (e *Engine) Pending() int {
	return e.queued
}

// Spawned returns the total number of processes registered since the engine
// was created.
func (e *Engine) Spawned() int {
	return e.spawned
}

// Live returns the number of processes that have neither completed nor been
// abandoned: each is either awaiting a resumption or currently executing a
// step.
func (e *Engine) Live() int {
	return e.live
}

// Proc is the handle of a spawned process. A process advances as a chain of
// steps: each step either calls [Proc.Suspend] exactly once to schedule its
// continuation, or returns without suspending, which completes the process.
type Proc struct {
	engine *Engine
	name   string
	armed  bool
	done   bool
}

// Name returns the label given at spawn time.
func (p *Proc) Name() string {
	return p.name
}

// Done reports whether the process has completed.
func (p *Proc) Done() bool {
	return p.done
}

// Suspend schedules resume to run delay minutes from the current virtual
// time. A zero delay places the resumption behind those already queued for
// the current time, so an eager process still yields control between steps.
// Suspend panics if delay is negative or NaN, if the process has already
// completed, or if a resumption is already scheduled.
func (p *Proc) Suspend(delay float64, resume func()) {
	p.arm(delay, resume)
}

func (p *Proc) arm(delay float64, fn func()) {
	if delay < 0 || math.IsNaN(delay) {
		panic("delay may not be negative or NaN")
	}
	if p.done {
		panic("process has already completed")
	}
	if p.armed {
		panic("process already has a pending resumption")
	}
	e := p.engine
	e.seq++
	heap.PushOrderable(&e.queue, resumption{
		at:   e.now + delay,
		seq:  e.seq,
		proc: p,
		fn:   fn,
	})
	e.queued++
	p.armed = true
}
