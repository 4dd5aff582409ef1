package handler_test

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

func changeApproval(t *testing.T, env *testutil.TestEnv, token, orderID, lineID, status string) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{"approvalType": entity.ApprovalLabDip, "status": status}
	if lineID != "" {
		body["orderLineId"] = lineID
	}
	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+orderID+"/approvals", body, token)
	return dataOf(t, mustStatus(t, w, http.StatusOK))
}

func TestApprovalRollupAndHistoryRewind(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := seed(t, env, "admin", entity.RoleAdmin)

	order := createOrder(t, env, admin.Token, map[string]interface{}{
		"poNumber": "PO-ROLL",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines": []interface{}{
				map[string]interface{}{"colorCode": "RED", "quantity": 10},
				map[string]interface{}{"colorCode": "BLU", "quantity": 10},
				map[string]interface{}{"colorCode": "GRN", "quantity": 10},
			},
		}},
	})
	id := order["id"].(string)
	lines := allLines(order)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	a, b, c := lines[0]["id"].(string), lines[1]["id"].(string), lines[2]["id"].(string)

	changeApproval(t, env, admin.Token, id, a, "approved")
	changeApproval(t, env, admin.Token, id, b, "approved")
	res := changeApproval(t, env, admin.Token, id, c, "resubmission")
	if got := approvalOf(res["order"].(map[string]interface{}), entity.ApprovalLabDip); got != "resubmission" {
		t.Fatalf("order labDip = %q, want resubmission", got)
	}

	res = changeApproval(t, env, admin.Token, id, c, "approved")
	if got := approvalOf(res["order"].(map[string]interface{}), entity.ApprovalLabDip); got != "approved" {
		t.Fatalf("order labDip = %q, want approved", got)
	}
	last := res["history"].(map[string]interface{})["id"].(string)

	// 同状态重复提交不写历史
	res = changeApproval(t, env, admin.Token, id, c, "approved")
	if res["logged"] != false {
		t.Errorf("repeated status should not be logged")
	}

	w := testutil.DoRequest(env.Router, http.MethodDelete, apiBase+"/orders/"+id+"/approval-history/"+last, nil, admin.Token)
	mustStatus(t, w, http.StatusOK)

	got := getOrder(t, env, admin.Token, id)
	if approvalOf(got, entity.ApprovalLabDip) != "resubmission" {
		t.Errorf("order labDip after rewind = %q, want resubmission", approvalOf(got, entity.ApprovalLabDip))
	}
	for _, l := range allLines(got) {
		if l["id"] == c && approvalOf(l, entity.ApprovalLabDip) != "resubmission" {
			t.Errorf("line labDip after rewind = %q, want resubmission", approvalOf(l, entity.ApprovalLabDip))
		}
	}
}

func TestApprovalHistorySurvivesReparenting(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	order := createOrder(t, env, merch.Token, map[string]interface{}{
		"poNumber": "PO-MOVE",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "A-01",
			"lines":       []interface{}{map[string]interface{}{"colorCode": "NAV", "quantity": 100}},
		}},
	})
	id := order["id"].(string)
	lineID := allLines(order)[0]["id"].(string)

	changeApproval(t, env, merch.Token, id, lineID, "submission")

	update := map[string]interface{}{
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "A-02",
			"lines":       []interface{}{map[string]interface{}{"id": lineID}},
		}},
	}
	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id, update, merch.Token)
	updated := dataOf(t, mustStatus(t, w, http.StatusOK))

	var moved bool
	for _, s := range styles(updated) {
		for _, l := range s["lines"].([]interface{}) {
			if l.(map[string]interface{})["id"] == lineID && s["styleNumber"] == "A-02" {
				moved = true
			}
		}
	}
	if !moved {
		t.Fatalf("line %s not under style A-02: %v", lineID, styles(updated))
	}
	if updated["quantity"] != float64(100) {
		t.Errorf("quantity = %v, want 100", updated["quantity"])
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/"+id+"/lines/"+lineID+"/approval-history", nil, merch.Token)
	view := dataOf(t, mustStatus(t, w, http.StatusOK))
	history := view["history"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}
	row := history[0].(map[string]interface{})
	if row["status"] != "submission" || row["styleNumber"] != "A-02" {
		t.Errorf("history row = %v", row)
	}
}

func TestApprovalValidation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)
	order := createOrder(t, env, merch.Token, map[string]interface{}{"poNumber": "PO-VAL"})
	id := order["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id+"/approvals",
		map[string]interface{}{"approvalType": "colour", "status": "approved"}, merch.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id+"/approvals",
		map[string]interface{}{"approvalType": "labDip", "status": "approved", "orderLineId": "missing"}, merch.Token)
	mustStatus(t, w, http.StatusBadRequest)

	// 非管理员不能删除历史
	res := changeApproval(t, env, merch.Token, id, "", "submission")
	historyID := res["history"].(map[string]interface{})["id"].(string)
	w = testutil.DoRequest(env.Router, http.MethodDelete, apiBase+"/orders/"+id+"/approval-history/"+historyID, nil, merch.Token)
	mustStatus(t, w, http.StatusForbidden)
}

func historyRows(t *testing.T, env *testutil.TestEnv, orderID string) []entity.ApprovalHistory {
	t.Helper()
	var rows []entity.ApprovalHistory
	if err := env.DB.Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load approval history: %v", err)
	}
	return rows
}

func TestRemovedLineRecomputesRollup(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := seed(t, env, "admin", entity.RoleAdmin)

	order := createOrder(t, env, admin.Token, map[string]interface{}{
		"poNumber": "PO-DROP",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines": []interface{}{
				map[string]interface{}{"colorCode": "RED", "quantity": 10},
				map[string]interface{}{"colorCode": "BLU", "quantity": 10},
			},
		}},
	})
	id := order["id"].(string)
	lines := allLines(order)
	red, blue := lines[0]["id"].(string), lines[1]["id"].(string)

	res := changeApproval(t, env, admin.Token, id, red, "submission")
	dropped := res["history"].(map[string]interface{})["id"].(string)
	changeApproval(t, env, admin.Token, id, blue, "approved")
	if got := approvalOf(getOrder(t, env, admin.Token, id), entity.ApprovalLabDip); got != "submission" {
		t.Fatalf("order labDip = %q, want submission", got)
	}

	// 删掉 RED 行：剩余行全部 approved
	update := map[string]interface{}{
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines":       []interface{}{map[string]interface{}{"id": blue}},
		}},
	}
	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id, update, admin.Token)
	if got := approvalOf(dataOf(t, mustStatus(t, w, http.StatusOK)), entity.ApprovalLabDip); got != "approved" {
		t.Fatalf("order labDip after line removal = %q, want approved", got)
	}

	rows := historyRows(t, env, id)
	if len(rows) != 2 {
		t.Fatalf("history rows = %d, want 2 kept", len(rows))
	}
	for _, h := range rows {
		if h.ID == dropped && h.LineID != nil {
			t.Errorf("history of removed line still points at %s", *h.LineID)
		}
	}

	// 孤儿记录的编辑和删除不能覆盖行汇总
	path := apiBase + "/orders/" + id + "/approval-history/" + dropped
	w = testutil.DoRequest(env.Router, http.MethodPatch, path, map[string]interface{}{"status": "rejected"}, admin.Token)
	mustStatus(t, w, http.StatusOK)
	if got := approvalOf(getOrder(t, env, admin.Token, id), entity.ApprovalLabDip); got != "approved" {
		t.Errorf("order labDip after orphan edit = %q, want approved", got)
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete, path, nil, admin.Token)
	mustStatus(t, w, http.StatusOK)
	if got := approvalOf(getOrder(t, env, admin.Token, id), entity.ApprovalLabDip); got != "approved" {
		t.Errorf("order labDip after orphan delete = %q, want approved", got)
	}
}

func TestDeleteStyleRecomputesRollup(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := seed(t, env, "admin", entity.RoleAdmin)

	order := createOrder(t, env, admin.Token, map[string]interface{}{
		"poNumber": "PO-STYLE",
		"styles": []interface{}{
			map[string]interface{}{
				"styleNumber": "KEEP",
				"lines":       []interface{}{map[string]interface{}{"colorCode": "RED", "quantity": 10}},
			},
			map[string]interface{}{
				"styleNumber": "GONE",
				"lines":       []interface{}{map[string]interface{}{"colorCode": "RED", "quantity": 10}},
			},
		},
	})
	id := order["id"].(string)
	var keepLine, goneLine, goneStyle string
	for _, s := range styles(order) {
		l := s["lines"].([]interface{})[0].(map[string]interface{})
		if s["styleNumber"] == "KEEP" {
			keepLine = l["id"].(string)
		} else {
			goneStyle, goneLine = s["id"].(string), l["id"].(string)
		}
	}

	changeApproval(t, env, admin.Token, id, keepLine, "approved")
	changeApproval(t, env, admin.Token, id, goneLine, "rejected")

	w := testutil.DoRequest(env.Router, http.MethodDelete, apiBase+"/orders/"+id+"/styles/"+goneStyle, nil, admin.Token)
	mustStatus(t, w, http.StatusOK)
	if got := approvalOf(getOrder(t, env, admin.Token, id), entity.ApprovalLabDip); got != "approved" {
		t.Errorf("order labDip after style delete = %q, want approved", got)
	}
}

func TestRecreatedLineSeesOrphanHistory(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	order := createOrder(t, env, merch.Token, map[string]interface{}{
		"poNumber": "PO-RECREATE",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines":       []interface{}{map[string]interface{}{"colorCode": "NAV", "quantity": 50}},
		}},
	})
	id := order["id"].(string)
	old := allLines(order)[0]["id"].(string)
	changeApproval(t, env, merch.Token, id, old, "submission")

	// 不带 id：旧行删除，新建同款同色行
	update := map[string]interface{}{
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "S1",
			"lines":       []interface{}{map[string]interface{}{"colorCode": "NAV", "quantity": 50}},
		}},
	}
	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id, update, merch.Token)
	lines := allLines(dataOf(t, mustStatus(t, w, http.StatusOK)))
	if len(lines) != 1 || lines[0]["id"] == old {
		t.Fatalf("expected a recreated line, got %v", lines)
	}
	fresh := lines[0]["id"].(string)

	rows := historyRows(t, env, id)
	if len(rows) != 1 || rows[0].LineID != nil {
		t.Fatalf("history = %+v, want one row with no line", rows)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/"+id+"/lines/"+fresh+"/approval-history", nil, merch.Token)
	view := dataOf(t, mustStatus(t, w, http.StatusOK))
	history, _ := view["history"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("projected history = %d rows, want 1", len(history))
	}
	row := history[0].(map[string]interface{})
	if row["lineId"] != nil || row["matchedBy"] != "orphan" || row["status"] != "submission" {
		t.Errorf("projected row = %v", row)
	}
	projected, _ := view["projectedStatus"].(map[string]interface{})
	if projected[entity.ApprovalLabDip] != "submission" {
		t.Errorf("projected labDip = %v, want submission", projected[entity.ApprovalLabDip])
	}
}

// stripUpdatedAt 递归去掉 updatedAt，便于比较两次读取
func stripUpdatedAt(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			if k != "updatedAt" {
				out[k] = stripUpdatedAt(val)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = stripUpdatedAt(val)
		}
		return out
	}
	return v
}

func TestOrderPatchRoundTrip(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	order := createOrder(t, env, merch.Token, map[string]interface{}{
		"poNumber":     "PO-ROUND",
		"customerName": "Acme",
		"etd":          "2026-08-01",
		"styles": []interface{}{
			map[string]interface{}{
				"styleNumber": "R1",
				"lines": []interface{}{
					map[string]interface{}{"colorCode": "RED", "quantity": 10, "millPrice": "1.5", "provaPrice": "2"},
					map[string]interface{}{"colorCode": "BLU", "quantity": 20, "etd": "2026-07-15"},
				},
			},
			map[string]interface{}{
				"styleNumber": "R2",
				"lines":       []interface{}{map[string]interface{}{"colorCode": "GRN", "quantity": 5}},
			},
		},
	})
	id := order["id"].(string)
	changeApproval(t, env, merch.Token, id, allLines(order)[0]["id"].(string), "submission")

	before := getOrder(t, env, merch.Token, id)
	w := testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/orders/"+id, before, merch.Token)
	mustStatus(t, w, http.StatusOK)
	after := getOrder(t, env, merch.Token, id)

	if !reflect.DeepEqual(stripUpdatedAt(before), stripUpdatedAt(after)) {
		t.Fatalf("order changed after unchanged PATCH:\nbefore %v\nafter  %v", before, after)
	}
	if len(historyRows(t, env, id)) != 1 {
		t.Errorf("unchanged PATCH must not touch approval history")
	}
}
