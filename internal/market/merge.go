package market

import (
	"maps"
	"slices"
)

// MergeBonds returns the keyed union of mock and real bonds. Real entries
// replace mock entries sharing a key; mock-only entries are kept as is.
func MergeBonds(mock, real map[string]BondRecord) map[string]BondRecord {
	out := make(map[string]BondRecord, len(mock)+len(real))
	maps.Copy(out, mock)
	maps.Copy(out, real)
	return out
}

// MergeIndices overwrites dst per symbol with fresh quotes.
func MergeIndices(dst, fresh map[string]IndexQuote) {
	maps.Copy(dst, fresh)
}

// ClampLiquidity bounds a liquidity score to [LiquidityFloor, LiquidityCeil].
func ClampLiquidity(v int) int {
	return max(LiquidityFloor, min(LiquidityCeil, v))
}

func CloneIndices(in map[string]IndexQuote) map[string]IndexQuote {
	if in == nil {
		return map[string]IndexQuote{}
	}
	return maps.Clone(in)
}

func CloneBonds(in map[string]BondRecord) map[string]BondRecord {
	if in == nil {
		return map[string]BondRecord{}
	}
	return maps.Clone(in)
}

// Clone returns a copy that shares no slices with p.
func (p Portfolio) Clone() Portfolio {
	p.Bonds = slices.Clone(p.Bonds)
	if p.Bonds == nil {
		p.Bonds = []LineItem{}
	}
	return p
}

func ClonePortfolios(in map[string]Portfolio) map[string]Portfolio {
	out := make(map[string]Portfolio, len(in))
	for id, p := range in {
		out[id] = p.Clone()
	}
	return out
}

func CloneLearning(in map[string]LearningCategory) map[string]LearningCategory {
	out := make(map[string]LearningCategory, len(in))
	for k, c := range in {
		c.Modules = slices.Clone(c.Modules)
		out[k] = c
	}
	return out
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	news := slices.Clone(s.News)
	if news == nil {
		news = []NewsItem{}
	}
	return Snapshot{
		Indices:         CloneIndices(s.Indices),
		Bonds:           CloneBonds(s.Bonds),
		Portfolios:      ClonePortfolios(s.Portfolios),
		News:            news,
		LearningContent: CloneLearning(s.LearningContent),
	}
}
