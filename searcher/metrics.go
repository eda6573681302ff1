package searcher

import (
	"sync/atomic"
	"time"
)

// Metrics summarizes one search run.
type Metrics struct {
	StartTime    time.Time
	Duration     time.Duration
	Iterations   int64
	Expansions   int64
	Terminals    int64
	PlanFailures int64
	ExecFailures int64
	EvalFailures int64
	Infeasible   int64
}

type Collector struct {
	startTime    time.Time
	iterations   atomic.Int64
	expansions   atomic.Int64
	terminals    atomic.Int64
	planFailures atomic.Int64
	execFailures atomic.Int64
	evalFailures atomic.Int64
	infeasible   atomic.Int64
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Start() {
	c.startTime = time.Now()
}

func (c *Collector) AddIteration() {
	c.iterations.Add(1)
}

func (c *Collector) AddExpansion() {
	c.expansions.Add(1)
}

func (c *Collector) AddTerminal() {
	c.terminals.Add(1)
}

func (c *Collector) AddPlanFailure() {
	c.planFailures.Add(1)
}

func (c *Collector) AddExecFailure() {
	c.execFailures.Add(1)
}

func (c *Collector) AddEvalFailure() {
	c.evalFailures.Add(1)
}

func (c *Collector) AddInfeasible() {
	c.infeasible.Add(1)
}

func (c *Collector) Complete() Metrics {
	return Metrics{
		StartTime:    c.startTime,
		Duration:     time.Since(c.startTime),
		Iterations:   c.iterations.Load(),
		Expansions:   c.expansions.Load(),
		Terminals:    c.terminals.Load(),
		PlanFailures: c.planFailures.Load(),
		ExecFailures: c.execFailures.Load(),
		EvalFailures: c.evalFailures.Load(),
		Infeasible:   c.infeasible.Load(),
	}
}
