// Package debate re-scores candidate traces with a panel of independent
// critics and selects the final answer. Critics judge each trace in
// isolation; scores are aggregated only after every judgment is in.
package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"tqa/reasoning"
)

// Record is one critic's judgment of one trace. Sub-scores are clamped to
// [0, 1] before aggregation.
type Record struct {
	Critic       string
	Correctness  float64
	Completeness float64
	Support      float64
	Critique     string
}

func (r Record) score() float64 {
	return (clamp01(r.Correctness) + clamp01(r.Completeness) + clamp01(r.Support)) / 3
}

// Critic judges a single trace without seeing other critics' output.
type Critic interface {
	Name() string
	Judge(ctx context.Context, question string, trace *reasoning.Trace) (Record, error)
}

// Decision is the final outcome of one question-answering run.
type Decision struct {
	Trace   *reasoning.Trace
	Answer  any
	Score   float64
	Records []Record
	// Unanimous reports whether every surviving critic judgment agreed on
	// the winning trace within a small margin.
	Unanimous bool
}

type Stage struct {
	critics     []Critic
	callTimeout time.Duration
	verifier    Verifier
}

type StageOption func(*Stage)

func WithCallTimeout(d time.Duration) StageOption {
	return func(s *Stage) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithVerifier installs an answer verifier consulted as a tie-break of last
// resort.
func WithVerifier(v Verifier) StageOption {
	return func(s *Stage) {
		s.verifier = v
	}
}

func NewStage(critics []Critic, options ...StageOption) *Stage {
	s := &Stage{critics: critics}
	for _, option := range options {
		option(s)
	}
	return s
}

type judgment struct {
	trace   *reasoning.Trace
	records []Record
}

// Decide runs every (critic, trace) judgment concurrently, aggregates the
// surviving records per trace and picks the winner. A trace judged by no
// surviving critic is dropped; if every trace is dropped the stage fails
// with the no-candidate error. With no critics configured the search scores
// stand unchanged.
func (s *Stage) Decide(ctx context.Context, question string, candidates []*reasoning.Trace) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, reasoning.ErrNoCandidates
	}
	if len(s.critics) == 0 {
		return s.decideWithoutCritics(question, candidates), nil
	}

	records := make([][]Record, len(candidates))
	results := make([]chan Record, len(candidates))
	for i := range results {
		results[i] = make(chan Record, len(s.critics))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, critic := range s.critics {
		for i, trace := range candidates {
			critic, i, trace := critic, i, trace
			g.Go(func() error {
				jctx := gctx
				if s.callTimeout > 0 {
					var cancel context.CancelFunc
					jctx, cancel = context.WithTimeout(gctx, s.callTimeout)
					defer cancel()
				}
				record, err := critic.Judge(jctx, question, trace)
				if err != nil {
					// a failed critic abstains; the others still count
					log.Warn().Err(err).Str("critic", critic.Name()).Str("trace", trace.ID).
						Msg("critic judgment failed")
					return nil
				}
				results[i] <- record
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("debate stage: %w", err)
	}
	for i := range results {
		close(results[i])
		for record := range results[i] {
			records[i] = append(records[i], record)
		}
	}

	judgments := make([]judgment, 0, len(candidates))
	for i, trace := range candidates {
		if len(records[i]) == 0 {
			log.Warn().Str("trace", trace.ID).Msg("trace dropped: no critic judged it")
			continue
		}
		judgments = append(judgments, judgment{trace: trace, records: records[i]})
	}
	if len(judgments) == 0 {
		return nil, reasoning.ErrNoCandidates
	}

	return s.pick(question, judgments), nil
}

func (s *Stage) decideWithoutCritics(question string, candidates []*reasoning.Trace) *Decision {
	best := candidates[0]
	for _, t := range candidates[1:] {
		if t.Score > best.Score {
			best = t
		}
	}
	return &Decision{Trace: best, Answer: best.Answer, Score: best.Score, Unanimous: true}
}

// pick ranks aggregated judgments: mean critic score first, unanimity next,
// then the shortest action sequence, with the verifier as final arbiter.
func (s *Stage) pick(question string, judgments []judgment) *Decision {
	type scored struct {
		judgment
		mean      float64
		unanimous bool
	}

	ranked := make([]scored, len(judgments))
	for i, j := range judgments {
		ranked[i] = scored{judgment: j, mean: meanScore(j.records), unanimous: unanimous(j.records)}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.mean > b.mean:
			return -1
		case a.mean < b.mean:
			return 1
		}
		if a.unanimous != b.unanimous {
			if a.unanimous {
				return -1
			}
			return 1
		}
		if d := len(a.trace.Steps) - len(b.trace.Steps); d != 0 {
			return d
		}
		if s.verifier != nil {
			av, bv := s.verifier.Verify(question, a.trace.Answer), s.verifier.Verify(question, b.trace.Answer)
			if av != bv {
				if av {
					return -1
				}
				return 1
			}
		}
		return 0
	})

	winner := ranked[0]
	if s.verifier != nil && !s.verifier.Verify(question, winner.trace.Answer) {
		// sanity fallback: prefer the best candidate whose answer shape
		// matches the question
		for _, cand := range ranked[1:] {
			if s.verifier.Verify(question, cand.trace.Answer) {
				log.Info().Str("from", winner.trace.ID).Str("to", cand.trace.ID).
					Msg("verifier rejected winner, falling back to next verified candidate")
				winner = cand
				break
			}
		}
	}
	return &Decision{
		Trace:     winner.trace,
		Answer:    winner.trace.Answer,
		Score:     winner.mean,
		Records:   winner.records,
		Unanimous: winner.unanimous,
	}
}

func meanScore(records []Record) float64 {
	sum := 0.0
	for _, r := range records {
		sum += r.score()
	}
	return sum / float64(len(records))
}

// unanimous reports whether every record's aggregate score falls within a
// narrow band, i.e. the panel did not meaningfully disagree.
func unanimous(records []Record) bool {
	const band = 0.15
	lo, hi := records[0].score(), records[0].score()
	for _, r := range records[1:] {
		v := r.score()
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi-lo <= band
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
