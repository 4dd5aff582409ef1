package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

func TestCreateOrderMergesByPONumber(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	first := map[string]interface{}{
		"poNumber": "PO-42",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines":       []interface{}{map[string]interface{}{"colorCode": "RED", "quantity": 50}},
		}},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders", first, merch.Token)
	created := dataOf(t, mustStatus(t, w, http.StatusCreated))

	second := map[string]interface{}{
		"poNumber": "PO-42",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines":       []interface{}{map[string]interface{}{"colorCode": "RED", "quantity": 30}},
		}},
	}
	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders", second, merch.Token)
	merged := dataOf(t, mustStatus(t, w, http.StatusOK))

	if merged["id"] != created["id"] {
		t.Fatalf("merge created a new order: %v vs %v", merged["id"], created["id"])
	}
	if merged["poNumber"] != "PO-42" || merged["quantity"] != float64(80) {
		t.Errorf("merged order = poNumber %v, quantity %v", merged["poNumber"], merged["quantity"])
	}
	ss := styles(merged)
	if len(ss) != 1 || ss[0]["styleNumber"] != "S1" {
		t.Fatalf("styles = %v", ss)
	}
	lines := allLines(merged)
	if len(lines) != 1 || lines[0]["colorCode"] != "RED" || lines[0]["quantity"] != float64(80) {
		t.Fatalf("lines = %v", lines)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders?search=PO-42", nil, merch.Token)
	if got := items(t, mustStatus(t, w, http.StatusOK)); len(got) != 1 {
		t.Errorf("expected exactly one PO-42 order, got %d", len(got))
	}
}

func TestCreateOrderValidation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders", map[string]interface{}{}, merch.Token)
	resp := mustStatus(t, w, http.StatusBadRequest)
	if resp["code"] != float64(40000) {
		t.Errorf("code = %v, want 40000", resp["code"])
	}
	errs, _ := resp["errors"].(map[string]interface{})
	if _, ok := errs["poNumber"]; !ok {
		t.Errorf("expected poNumber field error, got %v", resp["errors"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders",
		map[string]interface{}{"poNumber": "PO-EMPTY", "styles": []interface{}{}}, merch.Token)
	resp = mustStatus(t, w, http.StatusBadRequest)
	errs, _ = resp["errors"].(map[string]interface{})
	if _, ok := errs["styles"]; !ok {
		t.Errorf("expected styles field error, got %v", resp["errors"])
	}
}

func TestChangeStageDeliveredClosesOrder(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)
	order := createOrder(t, env, merch.Token, map[string]interface{}{"poNumber": "PO-DLV"})
	id := order["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders/"+id+"/change-stage",
		map[string]interface{}{"stage": "Delivered"}, merch.Token)
	mustStatus(t, w, http.StatusOK)

	got := getOrder(t, env, merch.Token, id)
	if got["status"] != entity.StatusCompleted || got["category"] != entity.CategoryArchived {
		t.Errorf("order = status %v, category %v", got["status"], got["category"])
	}
	today := time.Now().UTC().Format(entity.DateLayout)
	if got["actualDeliveryDate"] != today {
		t.Errorf("actualDeliveryDate = %v, want %s", got["actualDeliveryDate"], today)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/"+id+"/timeline", nil, merch.Token)
	found := false
	for _, it := range items(t, mustStatus(t, w, http.StatusOK)) {
		ev := it.(map[string]interface{})
		if ev["eventType"] == entity.EventStageChanged && ev["title"] == "Delivered" {
			found = true
		}
	}
	if !found {
		t.Errorf("Delivered timeline event missing")
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders/"+id+"/change-stage",
		map[string]interface{}{"stage": "Shipped"}, merch.Token)
	mustStatus(t, w, http.StatusBadRequest)
}

func TestOrderVisibility(t *testing.T) {
	env := testutil.NewTestEnv(t)
	owner := seed(t, env, "owner", entity.RoleMerchandiser)
	other := seed(t, env, "other", entity.RoleMerchandiser)
	manager := seed(t, env, "manager", entity.RoleManager)

	order := createOrder(t, env, owner.Token, map[string]interface{}{"poNumber": "PO-VIS"})
	id := order["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/"+id, nil, other.Token)
	mustStatus(t, w, http.StatusNotFound)

	getOrder(t, env, manager.Token, id)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders", nil, other.Token)
	if got := items(t, mustStatus(t, w, http.StatusOK)); len(got) != 0 {
		t.Errorf("other merchandiser sees %d orders", len(got))
	}
}

func TestUpdateLineStatusAndBulk(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)
	order := createOrder(t, env, merch.Token, map[string]interface{}{
		"poNumber": "PO-LS",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines": []interface{}{
				map[string]interface{}{"colorCode": "RED", "quantity": 10},
				map[string]interface{}{"colorCode": "BLU", "quantity": 20},
			},
		}},
	})
	id := order["id"].(string)
	lineID := allLines(order)[0]["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id+"/lines/"+lineID+"/status",
		map[string]interface{}{"status": "running"}, merch.Token)
	if got := dataOf(t, mustStatus(t, w, http.StatusOK)); got["status"] != "running" {
		t.Errorf("line status = %v", got["status"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id+"/lines/bulk-status",
		map[string]interface{}{"status": "bulk"}, merch.Token)
	if got := dataOf(t, mustStatus(t, w, http.StatusOK)); got["updated"] != float64(2) {
		t.Errorf("bulk updated = %v, want 2", got["updated"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id+"/lines/"+lineID+"/status",
		map[string]interface{}{"status": "shipped"}, merch.Token)
	mustStatus(t, w, http.StatusBadRequest)
}

func TestUpcomingETDRejectsNegativeDays(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	w := testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/alerts/upcoming-etd?days=-1", nil, merch.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/alerts/upcoming-etd?days=7", nil, merch.Token)
	if got := dataOf(t, mustStatus(t, w, http.StatusOK)); got["count"] != float64(0) {
		t.Errorf("count = %v, want 0", got["count"])
	}
}

func TestOrderStatsAndStuckApprovals(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mona := seed(t, env, "mona", entity.RoleMerchandiser)
	sam := seed(t, env, "sam", entity.RoleMerchandiser)
	boss := seed(t, env, "boss", entity.RoleManager)

	stuck := createOrder(t, env, mona.Token, map[string]interface{}{"poNumber": "PO-S1"})
	createOrder(t, env, mona.Token, map[string]interface{}{"poNumber": "PO-S2", "category": entity.CategoryRunning})
	createOrder(t, env, sam.Token, map[string]interface{}{"poNumber": "PO-S3"})

	w := testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/stats", nil, mona.Token)
	stats := dataOf(t, mustStatus(t, w, http.StatusOK))
	if stats["total"] != float64(2) || stats["running"] != float64(1) || stats["upcoming"] != float64(1) {
		t.Errorf("merchandiser stats = %v", stats)
	}
	if recent, _ := stats["recent"].([]interface{}); len(recent) != 2 {
		t.Errorf("recent = %d, want 2", len(recent))
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/stats", nil, boss.Token)
	if got := dataOf(t, mustStatus(t, w, http.StatusOK))["total"]; got != float64(3) {
		t.Errorf("manager total = %v, want 3", got)
	}

	// 待审且 5 天未动
	err := env.DB.Model(&entity.Order{}).Where("id = ?", stuck["id"]).UpdateColumns(map[string]interface{}{
		"approval_status": entity.ApprovalStatusMap{entity.ApprovalLabDip: entity.ApprovalStatusSubmission},
		"updated_at":      time.Now().AddDate(0, 0, -5),
	}).Error
	if err != nil {
		t.Fatalf("age order: %v", err)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/alerts/stuck-approvals", nil, boss.Token)
	data := dataOf(t, mustStatus(t, w, http.StatusOK))
	list, _ := data["items"].([]interface{})
	if len(list) != 1 || list[0].(map[string]interface{})["id"] != stuck["id"] {
		t.Fatalf("stuck approvals = %v", data)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/alerts/stuck-approvals", nil, sam.Token)
	if got := dataOf(t, mustStatus(t, w, http.StatusOK))["count"]; got != float64(0) {
		t.Errorf("other merchandiser sees %v stuck orders, want 0", got)
	}
}
