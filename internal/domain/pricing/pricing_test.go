package pricing_test

import (
	"testing"

	"storefront/internal/domain/pricing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name        string
		lines       []pricing.Line
		shippingFee int64
		discount    int64
		want        pricing.Quote
	}{
		{
			name: "two lines with fee and discount",
			lines: []pricing.Line{
				{UnitPrice: 100000, Quantity: 2},
				{UnitPrice: 50000, Quantity: 1},
			},
			shippingFee: 20000,
			discount:    10000,
			want: pricing.Quote{
				Subtotal:    250000,
				ShippingFee: 20000,
				Discount:    10000,
				GrandTotal:  260000,
			},
		},
		{
			name:  "single line no extras",
			lines: []pricing.Line{{UnitPrice: 1500, Quantity: 3}},
			want: pricing.Quote{
				Subtotal:   4500,
				GrandTotal: 4500,
			},
		},
		{
			name:        "discount larger than subtotal is not clamped",
			lines:       []pricing.Line{{UnitPrice: 1000, Quantity: 1}},
			discount:    5000,
			want: pricing.Quote{
				Subtotal:   1000,
				Discount:   5000,
				GrandTotal: -4000,
			},
		},
		{
			name:        "no lines",
			lines:       nil,
			shippingFee: 100,
			want: pricing.Quote{
				ShippingFee: 100,
				GrandTotal:  100,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pricing.Calculate(tc.lines, tc.shippingFee, tc.discount)
			assert.Equal(t, tc.want, got)
			// 不変条件
			assert.Equal(t, got.GrandTotal, got.Subtotal+got.ShippingFee-got.Discount)
		})
	}
}
