package reporting

import (
	"math/big"

	"crypto-taint-tracer/internal/domain/entity"
)

var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// InvestigationScore condenses a ledger into a 0-100 score: 25 points per
// direct bad-actor hit (depth 0), 15 per indirect hit (deeper), 5 per
// layering hop, plus half a point per whole native unit flagged. Integer
// arithmetic throughout so the score is reproducible.
func InvestigationScore(ledger *entity.RiskLedger) int {
	direct := 0
	indirect := 0
	layering := 0
	flaggedWei := new(big.Int)

	for _, event := range ledger.Events {
		switch event.Kind {
		case entity.RiskEventKnownBadActorHit:
			if event.Depth == 0 {
				direct++
			} else {
				indirect++
			}
		case entity.RiskEventLayeringHop:
			layering++
		}
		if event.Transaction != nil && event.Transaction.Value != nil {
			flaggedWei.Add(flaggedWei, event.Transaction.Value)
		}
	}

	flaggedEth := new(big.Int).Div(flaggedWei, weiPerEth)

	score := direct*25 + indirect*15 + layering*5 + int(flaggedEth.Int64()/2)
	if score > 100 {
		score = 100
	}
	return score
}

// RiskBand maps a score to its reporting band.
func RiskBand(score int) string {
	switch {
	case score < 30:
		return "LOW RISK"
	case score < 60:
		return "MODERATE RISK"
	default:
		return "HIGH RISK"
	}
}
