package service

import (
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/shopspring/decimal"
)

func price(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got.String(), want)
	}
}

func TestComputeOrderMetricsOrderPricing(t *testing.T) {
	order := &entity.Order{
		Quantity:   100,
		MillPrice:  price("2.00"),
		ProvaPrice: price("3.00"),
		Styles: []entity.Style{{Lines: []entity.Line{
			{ID: "l1", Quantity: 100},
		}}},
	}

	m := ComputeOrderMetrics(order, 60)
	if m.LinePricing {
		t.Fatalf("expected order-level pricing")
	}
	if m.ShortageExcessQuantity != -40 {
		t.Errorf("shortage = %v, want -40", m.ShortageExcessQuantity)
	}
	assertDecimal(t, "ratio", m.DeliveryRatio, "0.6")
	assertDecimal(t, "potential", m.PotentialProfit, "100")
	assertDecimal(t, "realized", m.RealizedProfit, "60")
	assertDecimal(t, "value", m.RealizedValue, "180")

	over := ComputeOrderMetrics(order, 150)
	assertDecimal(t, "ratio capped", over.DeliveryRatio, "1")
	if !over.RealizedProfit.Equal(over.PotentialProfit) {
		t.Errorf("realized %s should equal potential %s when fully delivered", over.RealizedProfit, over.PotentialProfit)
	}
}

func TestComputeOrderMetricsLinePricing(t *testing.T) {
	order := &entity.Order{
		Quantity: 999,
		Styles: []entity.Style{{Lines: []entity.Line{
			{ID: "a", Quantity: 100, MillPrice: price("2"), ProvaPrice: price("3")},
			{ID: "b", Quantity: 50},
		}}},
	}

	m := ComputeOrderMetrics(order, 75)
	if !m.LinePricing {
		t.Fatalf("expected line-level pricing")
	}
	if m.OrderedQuantity != 150 {
		t.Errorf("ordered = %v, want 150 (sum of lines)", m.OrderedQuantity)
	}
	assertDecimal(t, "ratio", m.DeliveryRatio, "0.5")
	assertDecimal(t, "potential", m.PotentialProfit, "100")
	assertDecimal(t, "realized", m.RealizedProfit, "50")
	assertDecimal(t, "value", m.RealizedValue, "150")
	if m.RealizedProfit.GreaterThan(m.PotentialProfit) {
		t.Errorf("realized profit must not exceed potential")
	}
}

func TestComputeOrderMetricsZeroOrdered(t *testing.T) {
	m := ComputeOrderMetrics(&entity.Order{}, 10)
	assertDecimal(t, "ratio", m.DeliveryRatio, "0")
	assertDecimal(t, "potential", m.PotentialProfit, "0")
}

func TestComputeLineMetrics(t *testing.T) {
	line := &entity.Line{Quantity: 200, MillPrice: price("1.50"), ProvaPrice: price("2.00")}
	m := ComputeLineMetrics(line, 50)
	assertDecimal(t, "ratio", m.DeliveryRatio, "0.25")
	assertDecimal(t, "potential", m.PotentialProfit, "100")
	assertDecimal(t, "realized", m.RealizedProfit, "25")
	assertDecimal(t, "value", m.RealizedValue, "100")
	if m.ShortageExcessQuantity != -150 {
		t.Errorf("shortage = %v, want -150", m.ShortageExcessQuantity)
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestComputeProgress(t *testing.T) {
	lines := []entity.Line{
		{ID: "l1", Quantity: 100, GreigeQuantity: floatPtr(120)},
		{ID: "l2", Quantity: 80, YarnRequired: floatPtr(100)},
	}
	sums := []repository.ProductionSum{
		{LineID: strPtr("l1"), EntryType: entity.EntryKnitting, Total: 50},
		{LineID: strPtr("l2"), EntryType: entity.EntryKnitting, Total: 50},
		{LineID: strPtr("l1"), EntryType: entity.EntryDyeing, Total: 40},
		{LineID: nil, EntryType: entity.EntryFinishing, Total: 20},
	}

	p := ComputeProgress(lines, sums, "")
	if p.GreigeDenominator != 200 || p.YarnDenominator != 220 {
		t.Fatalf("denominators = (%v, %v), want (200, 220)", p.GreigeDenominator, p.YarnDenominator)
	}
	checks := map[string][2]float64{
		"knitting":  {p.KnittingPercent, 50},
		"dyeing":    {p.DyeingPercent, 20},
		"finishing": {p.FinishingPercent, 10},
		"yarn":      {p.YarnPercent, 45.5},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s percent = %v, want %v", name, c[0], c[1])
		}
	}

	one := ComputeProgress(lines, sums, "l1")
	if one.GreigeDenominator != 120 {
		t.Errorf("line greige = %v, want 120", one.GreigeDenominator)
	}
	if one.KnittingPercent != 41.7 || one.DyeingPercent != 33.3 || one.FinishingPercent != 0 {
		t.Errorf("line progress = %+v", one)
	}
}
