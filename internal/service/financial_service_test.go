package service

import (
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/shopspring/decimal"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestBuildPipeline(t *testing.T) {
	pis := []repository.StatusTotal{
		{Status: "draft", Currency: "USD", Count: 2, Amount: dec("1000")},
		{Status: "draft", Currency: "EUR", Count: 1, Amount: dec("200")},
		{Status: "sent", Currency: "USD", Count: 1, Amount: dec("50.5")},
	}
	lcs := []repository.StatusTotal{
		{Status: "issued", Currency: "USD", Count: 1, Amount: dec("900")},
	}

	p := BuildPipeline(pis, lcs)
	if len(p.PI) != 2 || p.PI[0].Status != "draft" || p.PI[0].Count != 3 {
		t.Fatalf("pi buckets = %+v", p.PI)
	}
	assertDecimal(t, "draft amount", p.PI[0].Amount, "1200")
	if len(p.LC) != 1 || p.LC[0].Count != 1 {
		t.Fatalf("lc buckets = %+v", p.LC)
	}

	if len(p.ByCurrency) != 2 || p.ByCurrency[0].Currency != "EUR" || p.ByCurrency[1].Currency != "USD" {
		t.Fatalf("by currency = %+v", p.ByCurrency)
	}
	usd := p.ByCurrency[1]
	if usd.PICount != 3 || usd.LCCount != 1 {
		t.Errorf("usd counts = (%d, %d), want (3, 1)", usd.PICount, usd.LCCount)
	}
	assertDecimal(t, "usd pi amount", usd.PIAmount, "1050.5")
	assertDecimal(t, "usd lc amount", usd.LCAmount, "900")
	assertDecimal(t, "eur lc amount", p.ByCurrency[0].LCAmount, "0")
}

func TestBuildPipelineEmpty(t *testing.T) {
	p := BuildPipeline(nil, nil)
	if p.PI == nil || p.LC == nil || p.ByCurrency == nil {
		t.Fatalf("empty pipeline should use empty slices, got %+v", p)
	}
}

func TestSummarizeProfits(t *testing.T) {
	items := []OrderProfit{
		{OrderID: "a", Currency: "USD", OrderMetrics: OrderMetrics{
			OrderedQuantity: 100, TotalDeliveredQuantity: 50,
			PotentialProfit: dec("100"), RealizedProfit: dec("50"), RealizedValue: dec("150"),
		}},
		{OrderID: "b", Currency: "USD", OrderMetrics: OrderMetrics{
			OrderedQuantity: 10, TotalDeliveredQuantity: 10,
			PotentialProfit: dec("5"), RealizedProfit: dec("5"), RealizedValue: dec("20"),
		}},
		{OrderID: "c", Currency: "BDT", OrderMetrics: OrderMetrics{
			PotentialProfit: dec("0"), RealizedProfit: dec("0"), RealizedValue: dec("0"),
		}},
	}

	totals := SummarizeProfits(items)
	if len(totals) != 2 || totals[0].Currency != "BDT" || totals[1].Currency != "USD" {
		t.Fatalf("totals = %+v", totals)
	}
	usd := totals[1]
	if usd.Orders != 2 || usd.OrderedQuantity != 110 || usd.TotalDeliveredQuantity != 60 {
		t.Errorf("usd totals = %+v", usd)
	}
	assertDecimal(t, "usd potential", usd.PotentialProfit, "105")
	assertDecimal(t, "usd realized", usd.RealizedProfit, "55")
	assertDecimal(t, "usd value", usd.RealizedValue, "170")
}
