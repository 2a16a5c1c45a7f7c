package linker

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultLinkType relates the product tickets of one order.
const DefaultLinkType = "Package Add-on"

type LinkCreator interface {
	Link(ctx context.Context, linkType, inwardKey, outwardKey string) error
}

// PairResult is the outcome of linking one pair of tickets.
type PairResult struct {
	Inward  string
	Outward string
	Err     error
}

// Report lists every attempted pair in pair order.
type Report struct {
	Pairs []PairResult
}

// Failed returns the pairs that could not be linked, for selective retry.
func (r Report) Failed() []PairResult {
	var out []PairResult
	for _, p := range r.Pairs {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

type Linker struct {
	lc       LinkCreator
	linkType string
	limiter  *rate.Limiter
}

// New paces pair calls at perSecond with the given burst; perSecond <= 0 disables pacing.
func New(lc LinkCreator, linkType string, perSecond float64, burst int) *Linker {
	if linkType == "" {
		linkType = DefaultLinkType
	}
	l := &Linker{lc: lc, linkType: linkType}
	if perSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return l
}

// Link relates every unordered pair (i<j) of keys. Pair failures are recorded
// in the report and never stop the other pairs.
func (l *Linker) Link(ctx context.Context, keys []string) Report {
	if len(keys) < 2 {
		return Report{}
	}

	pairs := make([]PairResult, 0, len(keys)*(len(keys)-1)/2)
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			pairs = append(pairs, PairResult{Inward: keys[i], Outward: keys[j]})
		}
	}

	var g errgroup.Group
	for i := range pairs {
		p := &pairs[i]
		g.Go(func() error {
			if l.limiter != nil {
				if err := l.limiter.Wait(ctx); err != nil {
					p.Err = err
					return nil
				}
			}
			if err := l.lc.Link(ctx, l.linkType, p.Inward, p.Outward); err != nil {
				log.Error().Err(err).Str("inward", p.Inward).Str("outward", p.Outward).Msg("link tickets")
				p.Err = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return Report{Pairs: pairs}
}
