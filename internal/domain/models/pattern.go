package models

import (
	"fmt"
	"time"
)

// minPatternTrades is how many closed trades a pattern needs before its
// weight departs from neutral.
const minPatternTrades = 3

// Pattern is a remembered market setup (indicator states + regime + session +
// timeframe) with its realized performance. Its weight multiplies position
// sizing in [0.1, 2.0].
type Pattern struct {
	ID          string    `json:"id"`
	Occurrences int       `json:"occurrences"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	WinRate     float64   `json:"win_rate"`
	AvgWinPct   float64   `json:"avg_win_pct"`
	AvgLossPct  float64   `json:"avg_loss_pct"`
	Weight      float64   `json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsed    time.Time `json:"last_used"`
}

// PatternSignature derives the stable pattern key from an indicator snapshot
// and its context.
func PatternSignature(snap *IndicatorSnapshot, regime Regime, session Session, timeframe string) string {
	rsiState := "mid"
	if Valid(snap.RSI) {
		switch {
		case snap.RSI > 70:
			rsiState = "high"
		case snap.RSI < 30:
			rsiState = "low"
		}
	}
	macdState := "bearish"
	if Valid(snap.MACD) && Valid(snap.MACDSignal) && snap.MACD > snap.MACDSignal {
		macdState = "bullish"
	}
	emaState := "below"
	if Valid(snap.EMA20) && snap.Price > snap.EMA20 {
		emaState = "above"
	}
	volState := "normal"
	if Valid(snap.VolumeRatio) && snap.VolumeRatio > 2 {
		volState = "high"
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s_%s_%s", rsiState, macdState, emaState, volState, regime, session, timeframe)
}

// Record updates the pattern after a closed trade attributed to it.
func (p *Pattern) Record(won bool, pnlPct float64, now time.Time) {
	p.Occurrences++
	p.LastUsed = now
	if won {
		p.Wins++
		p.AvgWinPct = (p.AvgWinPct*float64(p.Wins-1) + pnlPct) / float64(p.Wins)
	} else {
		p.Losses++
		if pnlPct < 0 {
			pnlPct = -pnlPct
		}
		p.AvgLossPct = (p.AvgLossPct*float64(p.Losses-1) + pnlPct) / float64(p.Losses)
	}
	if p.Occurrences > 0 {
		p.WinRate = float64(p.Wins) / float64(p.Occurrences)
	}
	p.recalcWeight()
}

func (p *Pattern) recalcWeight() {
	if p.Occurrences < minPatternTrades {
		p.Weight = 1.0
		return
	}
	// 0.5 win rate is neutral; scale so a perfect pattern can reach the cap.
	w := p.WinRate * 2
	consistency := float64(p.Occurrences) / 100
	if consistency > 0.2 {
		consistency = 0.2
	}
	rr := 1.0
	if p.AvgLossPct > 0 {
		rr = p.AvgWinPct / p.AvgLossPct / 2
		if rr > 1 {
			rr = 1
		}
	}
	w = w * (1 + consistency) * rr
	if w < 0.1 {
		w = 0.1
	}
	if w > 2.0 {
		w = 2.0
	}
	p.Weight = w
}
