package matcher

import (
	"context"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

// Chain tries several matchers in order. The first result that links an
// invoice or payment wins. Without one, the first non-empty result is kept
// so its note still reaches the line.
type Chain []Matcher

func (c Chain) FindMatch(ctx context.Context, line *model.BankStatementLine) (model.MatchInfo, error) {
	var fallback model.MatchInfo
	for _, m := range c {
		info, err := m.FindMatch(ctx, line)
		if err != nil {
			return model.MatchInfo{}, err
		}
		if info.InvoiceID != 0 || info.PaymentID != 0 {
			return info, nil
		}
		if fallback.IsEmpty() {
			fallback = info
		}
	}
	return fallback, nil
}

// NewChain builds the matchers registered under names, in order. Like New it
// returns nil and no error when names is empty or holds an unknown identifier.
// A single name yields that matcher unwrapped.
func (r *Registry) NewChain(names []string, deps Deps) (Matcher, error) {
	var chain Chain
	for _, name := range names {
		m, err := r.New(name, deps)
		if err != nil {
			return nil, err
		}
		if m == nil {
			deps.Log.Warn().Str("matcher", name).Msg("unknown matcher")
			return nil, nil
		}
		chain = append(chain, m)
	}
	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return chain, nil
}
