package analytics

import "strings"

// Category is one of the fixed allocation buckets shown on dashboards.
type Category string

const (
	CategoryLiquidities Category = "Liquidities"
	CategorySavings     Category = "Savings"
	CategoryInvestments Category = "Investments"
	CategoryCrypto      Category = "Crypto"
	CategoryOther       Category = "Other"
)

// categoryOrder fixes the presentation order of allocation buckets.
var categoryOrder = []Category{
	CategoryLiquidities, CategorySavings, CategoryInvestments, CategoryCrypto, CategoryOther,
}

// Keyword families matched against the account type, in preference
// order: cash-like first, then savings-like, then investment-like.
// French spellings are kept alongside English ones because account types
// are free text typed by users.
var (
	cashKeywords    = []string{"cash", "courant", "current"}
	savingsKeywords = []string{"epargne", "épargne", "livret", "savings"}
	investKeywords  = []string{"invest", "bourse", "ct", "pea", "broker"}
)

// Categorize classifies a position primarily by its account's declared
// type, falling back to the instrument's asset class when no keyword
// family matches.
func Categorize(accountType, assetClass string) Category {
	t := strings.ToLower(accountType)
	a := strings.ToLower(assetClass)

	if containsAny(t, cashKeywords) {
		return CategoryLiquidities
	}
	if containsAny(t, savingsKeywords) {
		return CategorySavings
	}
	if containsAny(t, investKeywords) {
		return CategoryInvestments
	}

	if strings.Contains(a, "crypto") {
		return CategoryCrypto
	}
	if strings.Contains(a, "cash") {
		return CategoryLiquidities
	}
	if containsAny(a, []string{"equity", "stock", "etf", "fund"}) {
		return CategoryInvestments
	}
	return CategoryOther
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
