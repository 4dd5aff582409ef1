package handler_test

import (
	"net/http"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
	"github.com/shopspring/decimal"
)

func decimalField(t *testing.T, obj map[string]interface{}, key, want string) {
	t.Helper()
	raw, ok := obj[key].(string)
	if !ok {
		t.Fatalf("%s is not a decimal string: %v", key, obj[key])
	}
	got, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("%s: %v", key, err)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", key, raw, want)
	}
}

func pricedOrder(t *testing.T, env *testutil.TestEnv, token string) (string, string) {
	t.Helper()
	order := createOrder(t, env, token, map[string]interface{}{
		"poNumber": "PO-LEDGER",
		"styles": []interface{}{map[string]interface{}{
			"styleNumber": "L-01",
			"lines": []interface{}{map[string]interface{}{
				"colorCode":  "NAV",
				"quantity":   100,
				"millPrice":  2,
				"provaPrice": 3,
			}},
		}},
	})
	lines := allLines(order)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	return order["id"].(string), lines[0]["id"].(string)
}

func TestDeliverySummary(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := seed(t, env, "mona", entity.RoleMerchandiser)
	orderID, lineID := pricedOrder(t, env, m.Token)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/supplier-deliveries", map[string]interface{}{
		"orderId":           orderID,
		"lineId":            lineID,
		"deliveryDate":      "2026-05-01",
		"deliveredQuantity": 40,
	}, m.Token)
	mustStatus(t, w, http.StatusCreated)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/supplier-deliveries/summary?orderId="+orderID, nil, m.Token)
	summary := dataOf(t, mustStatus(t, w, http.StatusOK))
	if summary["totalDeliveredQuantity"] != float64(40) {
		t.Errorf("totalDeliveredQuantity = %v, want 40", summary["totalDeliveredQuantity"])
	}
	if summary["shortageExcessQuantity"] != float64(-60) {
		t.Errorf("shortageExcessQuantity = %v, want -60", summary["shortageExcessQuantity"])
	}
	decimalField(t, summary, "deliveryRatio", "0.4")
	decimalField(t, summary, "potentialProfit", "100")
	decimalField(t, summary, "realizedProfit", "40")
	decimalField(t, summary, "realizedValue", "120")

	lines, _ := summary["lines"].([]interface{})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line summary, got %d", len(lines))
	}
	line := lines[0].(map[string]interface{})
	if line["lineId"] != lineID || line["deliveredQuantity"] != float64(40) {
		t.Errorf("line summary = %v", line)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/supplier-deliveries/summary", nil, m.Token)
	mustStatus(t, w, http.StatusBadRequest)
}

func TestDeliveryValidation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := seed(t, env, "mona", entity.RoleMerchandiser)
	orderID, _ := pricedOrder(t, env, m.Token)
	other := createOrder(t, env, m.Token, map[string]interface{}{"poNumber": "PO-OTHER"})
	otherLine := allLines(other)[0]["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/supplier-deliveries", map[string]interface{}{
		"orderId":           orderID,
		"deliveredQuantity": 0,
	}, m.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/supplier-deliveries", map[string]interface{}{
		"orderId":           orderID,
		"lineId":            otherLine,
		"deliveryDate":      "2026-05-01",
		"deliveredQuantity": 5,
	}, m.Token)
	mustStatus(t, w, http.StatusBadRequest)

	// 看不到的订单按不存在处理
	stranger := seed(t, env, "sam", entity.RoleMerchandiser)
	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/supplier-deliveries", map[string]interface{}{
		"orderId":           orderID,
		"deliveryDate":      "2026-05-01",
		"deliveredQuantity": 5,
	}, stranger.Token)
	mustStatus(t, w, http.StatusNotFound)
}

func TestProductionSummary(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := seed(t, env, "mona", entity.RoleMerchandiser)
	orderID, lineID := pricedOrder(t, env, m.Token)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/production-entries", map[string]interface{}{
		"orderId":   orderID,
		"lineId":    lineID,
		"entryType": entity.EntryKnitting,
		"entryDate": "2026-05-02",
		"quantity":  50,
	}, m.Token)
	mustStatus(t, w, http.StatusCreated)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/production-entries", map[string]interface{}{
		"orderId":   orderID,
		"entryType": "weaving",
		"quantity":  10,
	}, m.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/production-entries/summary?orderId="+orderID, nil, m.Token)
	summary := dataOf(t, mustStatus(t, w, http.StatusOK))
	if summary["knittingTotal"] != float64(50) || summary["knittingPercent"] != float64(50) {
		t.Errorf("knitting = %v / %v, want 50 / 50", summary["knittingTotal"], summary["knittingPercent"])
	}
	if summary["dyeingPercent"] != float64(0) {
		t.Errorf("dyeingPercent = %v, want 0", summary["dyeingPercent"])
	}
}
