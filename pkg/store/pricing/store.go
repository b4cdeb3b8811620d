package pricing

import (
	"context"
	"strings"
)

type Price struct {
	PricePerUnit float64
	CurrencyCode string
}

type Store interface {
	GetSkuPrice(ctx context.Context, sku string) Price
}

// skuRates maps sku name prefixes to list rates per DBU. Unknown skus fall
// back to the standard jobs compute rate.
// TODO: read rates from the billing.list_prices system table instead.
var skuRates = map[string]float64{
	"PREMIUM_JOBS_COMPUTE":  0.30,
	"PREMIUM_SQL_COMPUTE":   0.55,
	"PREMIUM_DLT":           0.36,
	"STANDARD_JOBS_COMPUTE": 0.22,
	"STANDARD_SQL_COMPUTE":  0.40,
	"STANDARD_ALL_PURPOSE":  0.40,
	"SERVERLESS_SQL":        0.70,
}

const defaultRate = 0.22

type pricingStore struct {
}

func NewStore() Store {
	return &pricingStore{}
}

func (p *pricingStore) GetSkuPrice(_ context.Context, sku string) Price {
	for prefix, rate := range skuRates {
		if strings.HasPrefix(sku, prefix) {
			return Price{PricePerUnit: rate, CurrencyCode: "USD"}
		}
	}
	return Price{PricePerUnit: defaultRate, CurrencyCode: "USD"}
}
