package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/olympe-app/portfolio-service/internal/models"
)

// Input is everything Build needs, pre-fetched by the caller. Reference
// price maps are keyed by instrument ID and hold the first observed price
// at or after each window start; an instrument absent from a map simply
// has no reference inside that window.
type Input struct {
	Accounts    []*models.Account
	Holdings    []*models.Holding
	Instruments map[string]*models.Instrument
	Ref1D       map[string]decimal.Decimal
	Ref30D      map[string]decimal.Decimal
	RefYTD      map[string]decimal.Decimal

	// History is the user's daily snapshot series in ascending day order.
	History []*models.PortfolioSnapshot

	Now time.Time
}

// Build computes the full analytics report. It is a pure function of its
// input: no I/O, no clock reads, so identical inputs always produce
// identical reports.
func Build(in Input) *Report {
	accountByID := make(map[string]*models.Account, len(in.Accounts))
	for _, a := range in.Accounts {
		accountByID[a.ID] = a
	}
	held := make(map[string]bool, len(in.Accounts))
	for _, h := range in.Holdings {
		held[h.AccountID] = true
	}

	totalValue := 0.0
	totalInvested := 0.0
	views := make([]HoldingView, 0, len(in.Holdings))
	catAmounts := make(map[Category]float64)
	typeAmounts := make(map[string]float64)

	for _, h := range in.Holdings {
		acct := accountByID[h.AccountID]
		inst := in.Instruments[h.InstrumentID]

		qty := h.Quantity.InexactFloat64()
		value := holdingValue(h)
		invested := h.Quantity.Mul(h.AvgBuyPrice).InexactFloat64()
		cur := h.CurrentPrice.InexactFloat64()
		if cur == 0 && qty > 0 {
			cur = value / qty
		}

		v := HoldingView{
			ID:           h.ID,
			Name:         h.AssetLabel,
			AccountID:    h.AccountID,
			InstrumentID: h.InstrumentID,
			Quantity:     qty,
			Value:        value,
			Invested:     invested,
		}
		if inst != nil {
			v.Ticker = inst.Symbol
			v.AssetClass = string(inst.AssetClass)
			if v.Name == "" {
				v.Name = inst.Name
			}
			if v.Name == "" {
				v.Name = inst.Symbol
			}
		}

		accountType := ""
		if acct != nil {
			v.AccountName = acct.Name
			v.AccountType = acct.Type
			accountType = acct.Type
		}

		if ref, ok := in.Ref1D[h.InstrumentID]; ok {
			v.DailyChangePct = ReturnPct(cur, ref.InexactFloat64())
			v.DailyAvailable = true
		}
		if ref, ok := in.Ref30D[h.InstrumentID]; ok {
			v.MonthlyChangePct = ReturnPct(cur, ref.InexactFloat64())
			v.MonthlyAvailable = true
		}
		if ref, ok := in.RefYTD[h.InstrumentID]; ok {
			v.YTDChangePct = ReturnPct(cur, ref.InexactFloat64())
			v.YTDAvailable = true
		}

		totalValue += value
		totalInvested += invested
		catAmounts[Categorize(accountType, v.AssetClass)] += value
		typeAmounts[normalizeType(accountType)] += value
		views = append(views, v)
	}

	// Accounts with no holdings are valued directly: their balance is the
	// position.
	for _, a := range in.Accounts {
		if held[a.ID] {
			continue
		}
		amount := a.CurrentAmount.InexactFloat64()
		totalValue += amount
		totalInvested += a.InitialAmount.InexactFloat64()
		catAmounts[Categorize(a.Type, "")] += amount
		typeAmounts[normalizeType(a.Type)] += amount
	}

	// Allocation percentages and weighted window returns both need the
	// final total, hence the second pass.
	daily, monthly, ytd := 0.0, 0.0, 0.0
	maxWeight := 0
	for i := range views {
		weight := 0.0
		if totalValue > 0 {
			weight = views[i].Value / totalValue
		}
		views[i].AllocationPct = roundPct(weight * 100)
		if views[i].AllocationPct > maxWeight {
			maxWeight = views[i].AllocationPct
		}
		daily += weight * views[i].DailyChangePct
		monthly += weight * views[i].MonthlyChangePct
		ytd += weight * views[i].YTDChangePct
	}

	summary := Summary{
		TotalValue:       round1(totalValue),
		TotalInvested:    round1(totalInvested),
		DailyChangePct:   round1(daily),
		MonthlyChangePct: round1(monthly),
		YTDChangePct:     round1(ytd),
		NbAccounts:       len(in.Accounts),
		NbHoldings:       len(in.Holdings),
	}
	if totalInvested > 0 {
		summary.TotalReturnPct = round1((totalValue - totalInvested) / totalInvested * 100)
	}

	return &Report{
		Summary:        summary,
		Holdings:       views,
		Allocations:    buildAllocations(catAmounts, totalValue),
		AccountTypes:   buildAccountTypes(typeAmounts, totalValue),
		Risk:           buildRisk(in.History, catAmounts, totalValue, maxWeight),
		TopHoldings:    topHoldings(views),
		BestHoldingID:  extremeHolding(views, true),
		WorstHoldingID: extremeHolding(views, false),
	}
}

// holdingValue prefers the cached valuation and falls back to
// quantity x price when the refresh cycle has not filled it yet.
func holdingValue(h *models.Holding) float64 {
	if !h.CurrentValue.IsZero() {
		return h.CurrentValue.InexactFloat64()
	}
	return h.Quantity.Mul(h.CurrentPrice).InexactFloat64()
}

func normalizeType(accountType string) string {
	if accountType == "" {
		return "other"
	}
	return accountType
}

func buildAllocations(amounts map[Category]float64, total float64) []Allocation {
	out := make([]Allocation, 0, len(amounts))
	for _, cat := range categoryOrder {
		amount := amounts[cat]
		if amount == 0 {
			continue
		}
		pct := 0
		if total > 0 {
			pct = roundPct(amount / total * 100)
		}
		out = append(out, Allocation{Category: cat, Amount: round1(amount), Percent: pct})
	}
	return out
}

func buildAccountTypes(amounts map[string]float64, total float64) []AccountTypeAllocation {
	out := make([]AccountTypeAllocation, 0, len(amounts))
	for t, amount := range amounts {
		if amount == 0 {
			continue
		}
		pct := 0
		if total > 0 {
			pct = roundPct(amount / total * 100)
		}
		out = append(out, AccountTypeAllocation{Type: t, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func buildRisk(history []*models.PortfolioSnapshot, catAmounts map[Category]float64, total float64, maxWeight int) RiskProfile {
	values := make([]float64, 0, len(history))
	for _, s := range history {
		values = append(values, s.TotalValue.InexactFloat64())
	}

	// Bucketing happens on the raw sigma; only the reported figure is
	// rounded.
	vol := stdDev(dailyReturns(values))
	dd := maxDrawdown(values)

	cashPct, investPct := 0, 0
	if total > 0 {
		cashPct = roundPct(catAmounts[CategoryLiquidities] / total * 100)
		investPct = roundPct(catAmounts[CategoryInvestments] / total * 100)
	}

	volScore := volatilityScore(vol)
	divScore := diversificationScore(maxWeight)
	level := (float64(volScore) + float64(drawdownSeverity(dd))) / 2

	return RiskProfile{
		VolatilityPct:        round1(vol),
		VolatilityScore:      volScore,
		VolatilityLabel:      volatilityLabel(volScore),
		MaxDrawdownPct:       dd,
		DiversificationScore: divScore,
		DiversificationLabel: diversificationLabel(divScore),
		LiquidityScore:       liquidityScore(cashPct),
		HorizonScore:         horizonScore(investPct),
		GlobalLabel:          riskLabel(level),
		HistoryPoints:        len(values),
	}
}

// topHoldings returns the five largest positions by value, annotated with
// their 30-day performance and a per-position volatility tag.
func topHoldings(views []HoldingView) []TopHolding {
	sorted := make([]HoldingView, len(views))
	copy(sorted, views)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	out := make([]TopHolding, 0, len(sorted))
	for _, v := range sorted {
		out = append(out, TopHolding{
			ID:              v.ID,
			Name:            v.Name,
			Ticker:          v.Ticker,
			WeightPct:       v.AllocationPct,
			PerfPct:         round1(v.MonthlyChangePct),
			VolatilityLabel: holdingVolatilityLabel(v.MonthlyChangePct),
		})
	}
	return out
}

// extremeHolding picks the best (or worst) 30-day performer among
// positions that actually have a 30-day reference. Ties keep the first.
func extremeHolding(views []HoldingView, best bool) string {
	id := ""
	var extreme float64
	for _, v := range views {
		if !v.MonthlyAvailable {
			continue
		}
		if id == "" ||
			(best && v.MonthlyChangePct > extreme) ||
			(!best && v.MonthlyChangePct < extreme) {
			id = v.ID
			extreme = v.MonthlyChangePct
		}
	}
	return id
}

func roundPct(v float64) int {
	return int(math.Round(v))
}
