package service

import (
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/shopspring/decimal"
)

// OrderMetrics 订单派生数量与金额
type OrderMetrics struct {
	OrderedQuantity        float64         `json:"ordered_quantity"`
	TotalDeliveredQuantity float64         `json:"total_delivered_quantity"`
	ShortageExcessQuantity float64         `json:"shortage_excess_quantity"`
	DeliveryRatio          decimal.Decimal `json:"delivery_ratio"`
	PotentialProfit        decimal.Decimal `json:"potential_profit"`
	RealizedProfit         decimal.Decimal `json:"realized_profit"`
	RealizedValue          decimal.Decimal `json:"realized_value"`
	LinePricing            bool            `json:"line_pricing"`
}

// LineMetrics 行派生数量与金额
type LineMetrics struct {
	OrderedQuantity        float64         `json:"ordered_quantity"`
	DeliveredQuantity      float64         `json:"delivered_quantity"`
	ShortageExcessQuantity float64         `json:"shortage_excess_quantity"`
	DeliveryRatio          decimal.Decimal `json:"delivery_ratio"`
	PotentialProfit        decimal.Decimal `json:"potential_profit"`
	RealizedProfit         decimal.Decimal `json:"realized_profit"`
	RealizedValue          decimal.Decimal `json:"realized_value"`
}

// deliveryRatio min(1, delivered/ordered)，ordered<=0 时为 0
func deliveryRatio(ordered, delivered decimal.Decimal) decimal.Decimal {
	if !ordered.IsPositive() {
		return decimal.Zero
	}
	ratio := delivered.Div(ordered)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	if ratio.IsNegative() {
		return decimal.Zero
	}
	return ratio
}

// ComputeOrderMetrics 计算订单派生值
//
// 任一行同时有工厂价和报价时按行计算：potential=Σ(prova-mill)*qty，realized=potential*ratio；
// 否则按订单价：(prova-mill)*min(ordered, delivered)。
func ComputeOrderMetrics(order *entity.Order, delivered float64) OrderMetrics {
	lines := order.Lines()

	linePricing := false
	lineTotal := 0.0
	for i := range lines {
		lineTotal += lines[i].Quantity
		if lines[i].HasPrices() {
			linePricing = true
		}
	}

	ordered := order.Quantity
	if linePricing {
		ordered = lineTotal
	}

	orderedDec := decimal.NewFromFloat(ordered)
	deliveredDec := decimal.NewFromFloat(delivered)
	ratio := deliveryRatio(orderedDec, deliveredDec)

	m := OrderMetrics{
		OrderedQuantity:        ordered,
		TotalDeliveredQuantity: delivered,
		ShortageExcessQuantity: delivered - ordered,
		DeliveryRatio:          ratio.Round(4),
		PotentialProfit:        decimal.Zero,
		RealizedProfit:         decimal.Zero,
		RealizedValue:          decimal.Zero,
		LinePricing:            linePricing,
	}

	if linePricing {
		potential := decimal.Zero
		value := decimal.Zero
		for i := range lines {
			l := &lines[i]
			qty := decimal.NewFromFloat(l.Quantity)
			if l.HasPrices() {
				potential = potential.Add(l.ProvaPrice.Decimal.Sub(l.MillPrice.Decimal).Mul(qty))
			}
			if l.ProvaPrice.Valid {
				value = value.Add(l.ProvaPrice.Decimal.Mul(qty))
			}
		}
		m.PotentialProfit = potential.Round(2)
		m.RealizedProfit = potential.Mul(ratio).Round(2)
		m.RealizedValue = value.Mul(ratio).Round(2)
		return m
	}

	realizedQty := decimal.Min(orderedDec, deliveredDec)
	if realizedQty.IsNegative() {
		realizedQty = decimal.Zero
	}
	if order.MillPrice.Valid && order.ProvaPrice.Valid {
		margin := order.ProvaPrice.Decimal.Sub(order.MillPrice.Decimal)
		m.PotentialProfit = margin.Mul(orderedDec).Round(2)
		m.RealizedProfit = margin.Mul(realizedQty).Round(2)
	}
	if order.ProvaPrice.Valid {
		m.RealizedValue = order.ProvaPrice.Decimal.Mul(realizedQty).Round(2)
	}
	return m
}

// ComputeLineMetrics 计算单行派生值
func ComputeLineMetrics(line *entity.Line, delivered float64) LineMetrics {
	qty := decimal.NewFromFloat(line.Quantity)
	ratio := deliveryRatio(qty, decimal.NewFromFloat(delivered))

	m := LineMetrics{
		OrderedQuantity:        line.Quantity,
		DeliveredQuantity:      delivered,
		ShortageExcessQuantity: delivered - line.Quantity,
		DeliveryRatio:          ratio.Round(4),
		PotentialProfit:        decimal.Zero,
		RealizedProfit:         decimal.Zero,
		RealizedValue:          decimal.Zero,
	}
	if line.HasPrices() {
		potential := line.ProvaPrice.Decimal.Sub(line.MillPrice.Decimal).Mul(qty)
		m.PotentialProfit = potential.Round(2)
		m.RealizedProfit = potential.Mul(ratio).Round(2)
	}
	if line.ProvaPrice.Valid {
		m.RealizedValue = line.ProvaPrice.Decimal.Mul(qty).Mul(ratio).Round(2)
	}
	return m
}

// ProductionProgress 本地生产进度
type ProductionProgress struct {
	KnittingTotal     float64 `json:"knitting_total"`
	DyeingTotal       float64 `json:"dyeing_total"`
	FinishingTotal    float64 `json:"finishing_total"`
	GreigeDenominator float64 `json:"greige_denominator"`
	YarnDenominator   float64 `json:"yarn_denominator"`
	KnittingPercent   float64 `json:"knitting_percent"`
	DyeingPercent     float64 `json:"dyeing_percent"`
	FinishingPercent  float64 `json:"finishing_percent"`
	YarnPercent       float64 `json:"yarn_percent"`
}

// greigeOf 坯布数量，未填回退到行数量
func greigeOf(l *entity.Line) float64 {
	if l.GreigeQuantity != nil {
		return *l.GreigeQuantity
	}
	return l.Quantity
}

// yarnOf 纱线需求，回退坯布再回退行数量
func yarnOf(l *entity.Line) float64 {
	if l.YarnRequired != nil {
		return *l.YarnRequired
	}
	return greigeOf(l)
}

// percent total/denom*100，保留一位小数；denom<=0 时为 0
func percent(total, denom float64) float64 {
	if denom <= 0 {
		return 0
	}
	v, _ := decimal.NewFromFloat(total).
		Div(decimal.NewFromFloat(denom)).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		Float64()
	return v
}

// ComputeProgress 计算生产进度；lineID 非空时只统计该行
func ComputeProgress(lines []entity.Line, sums []repository.ProductionSum, lineID string) ProductionProgress {
	var p ProductionProgress

	for i := range lines {
		l := &lines[i]
		if lineID != "" && l.ID != lineID {
			continue
		}
		p.GreigeDenominator += greigeOf(l)
		p.YarnDenominator += yarnOf(l)
	}

	for _, s := range sums {
		if lineID != "" && (s.LineID == nil || *s.LineID != lineID) {
			continue
		}
		switch s.EntryType {
		case entity.EntryKnitting:
			p.KnittingTotal += s.Total
		case entity.EntryDyeing:
			p.DyeingTotal += s.Total
		case entity.EntryFinishing:
			p.FinishingTotal += s.Total
		}
	}

	p.KnittingPercent = percent(p.KnittingTotal, p.GreigeDenominator)
	p.DyeingPercent = percent(p.DyeingTotal, p.GreigeDenominator)
	p.FinishingPercent = percent(p.FinishingTotal, p.GreigeDenominator)
	p.YarnPercent = percent(p.KnittingTotal, p.YarnDenominator)
	return p
}
