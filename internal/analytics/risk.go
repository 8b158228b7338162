package analytics

import "math"

// Risk scores are discrete 0-5 values derived from hand-tuned breakpoints.
// The breakpoints are load-bearing: the advisory wording shown to users is
// tied to these exact bucket boundaries, so they must not be re-tuned
// casually. 0 always means "no data".

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// dailyReturns converts an ordered value series into day-over-day
// percentage changes, skipping steps with a non-positive base.
func dailyReturns(values []float64) []float64 {
	var returns []float64
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev > 0 {
			returns = append(returns, (values[i]/prev-1)*100)
		}
	}
	return returns
}

// maxDrawdown walks the ordered value series tracking the running peak
// and returns the most negative peak-to-trough percentage seen, rounded
// to one decimal. Empty and single-point series draw down 0.
func maxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	worst := 0.0
	for i := 1; i < len(values); i++ {
		v := values[i]
		if v > peak {
			peak = v
		}
		dd := (v/peak - 1) * 100
		if dd < worst {
			worst = dd
		}
	}
	return round1(worst)
}

func volatilityScore(volatilityPct float64) int {
	switch {
	case volatilityPct == 0:
		return 0
	case volatilityPct < 0.5:
		return 1
	case volatilityPct < 1:
		return 2
	case volatilityPct < 1.5:
		return 3
	case volatilityPct < 2.5:
		return 4
	default:
		return 5
	}
}

func volatilityLabel(score int) string {
	switch {
	case score <= 2:
		return "low volatility"
	case score == 3:
		return "medium volatility"
	default:
		return "high volatility"
	}
}

// diversificationScore is inverted: the heavier the single largest
// position, the lower the score.
func diversificationScore(maxWeightPct int) int {
	switch {
	case maxWeightPct == 0:
		return 0
	case maxWeightPct > 60:
		return 1
	case maxWeightPct > 40:
		return 2
	case maxWeightPct > 25:
		return 3
	case maxWeightPct > 15:
		return 4
	default:
		return 5
	}
}

func diversificationLabel(score int) string {
	switch {
	case score <= 2:
		return "poorly diversified"
	case score == 3:
		return "moderately diversified"
	default:
		return "well diversified"
	}
}

func liquidityScore(cashPct int) int {
	switch {
	case cashPct == 0:
		return 0
	case cashPct < 5:
		return 2
	case cashPct < 20:
		return 4
	case cashPct < 50:
		return 5
	default:
		return 3
	}
}

func horizonScore(investPct int) int {
	switch {
	case investPct == 0:
		return 0
	case investPct < 20:
		return 2
	case investPct < 50:
		return 3
	case investPct < 80:
		return 4
	default:
		return 5
	}
}

// drawdownSeverity buckets |maxDrawdownPct| into 1-5. A zero drawdown is
// severity 1, not 0: "no data" is decided by the caller.
func drawdownSeverity(maxDrawdownPct float64) int {
	abs := math.Abs(maxDrawdownPct)
	switch {
	case maxDrawdownPct == 0:
		return 1
	case abs > 25:
		return 5
	case abs > 15:
		return 4
	case abs > 8:
		return 3
	default:
		return 2
	}
}

func riskLabel(levelScore float64) string {
	switch {
	case levelScore == 0:
		return "undetermined risk"
	case levelScore <= 2:
		return "low risk"
	case levelScore <= 3:
		return "moderate risk"
	case levelScore <= 4:
		return "dynamic risk"
	default:
		return "high risk"
	}
}

// holdingVolatilityLabel classifies a single position from the magnitude
// of its 30-day move.
func holdingVolatilityLabel(monthlyChangePct float64) string {
	vol := math.Abs(monthlyChangePct)
	switch {
	case vol < 2:
		return "low"
	case vol < 8:
		return "medium"
	default:
		return "high"
	}
}
