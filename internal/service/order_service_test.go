package service

import (
	"testing"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
)

func TestApplyStage(t *testing.T) {
	today := entity.NewDate(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	order := &entity.Order{Status: entity.StatusRunning, Category: entity.CategoryRunning}
	ApplyStage(order, entity.StageProduction, today)
	if order.CurrentStage != entity.StageProduction || order.Status != entity.StatusRunning {
		t.Fatalf("non-terminal stage changed status: %+v", order)
	}
	if order.ActualDeliveryDate != nil {
		t.Fatalf("actual delivery date should stay unset")
	}

	ApplyStage(order, entity.StageDelivered, today)
	if order.Status != entity.StatusCompleted || order.Category != entity.CategoryArchived {
		t.Errorf("delivered order = (%s, %s), want (completed, archived)", order.Status, order.Category)
	}
	if order.ActualDeliveryDate == nil || order.ActualDeliveryDate.String() != "2026-06-01" {
		t.Errorf("actual delivery date = %v, want today", order.ActualDeliveryDate)
	}
	if !order.IsClosed() {
		t.Errorf("delivered order should be closed")
	}
}

func TestApplyStageKeepsActualDeliveryDate(t *testing.T) {
	today := entity.NewDate(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	earlier := entity.NewDate(time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC))

	order := &entity.Order{ActualDeliveryDate: &earlier}
	ApplyStage(order, entity.StageDelivered, today)
	if order.ActualDeliveryDate.String() != "2026-05-20" {
		t.Errorf("actual delivery date overwritten: %s", order.ActualDeliveryDate)
	}
}
