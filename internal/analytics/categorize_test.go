package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name        string
		accountType string
		assetClass  string
		expected    Category
	}{
		{"cash account", "Compte courant", "", CategoryLiquidities},
		{"cash english", "Cash account", "", CategoryLiquidities},
		{"livret", "Livret A", "", CategorySavings},
		{"epargne accent", "Épargne logement", "", CategorySavings},
		{"epargne plain", "epargne salariale", "", CategorySavings},
		{"pea", "PEA", "equity", CategoryInvestments},
		{"broker", "Broker account", "", CategoryInvestments},
		{"cto short", "CTO", "", CategoryInvestments},
		{"crypto by asset class", "Wallet", "crypto", CategoryCrypto},
		{"equity by asset class", "", "equity", CategoryInvestments},
		{"etf by asset class", "", "etf", CategoryInvestments},
		{"cash by asset class", "", "cash", CategoryLiquidities},
		{"unknown everything", "Mystery", "commodity", CategoryOther},
		{"account type wins over asset class", "Compte courant", "crypto", CategoryLiquidities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.accountType, tt.assetClass))
		})
	}
}
