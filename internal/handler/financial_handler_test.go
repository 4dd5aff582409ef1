package handler_test

import (
	"net/http"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

func bucket(t *testing.T, list interface{}, status string) map[string]interface{} {
	t.Helper()
	entries, _ := list.([]interface{})
	for _, e := range entries {
		b := e.(map[string]interface{})
		if b["status"] == status {
			return b
		}
	}
	t.Fatalf("no %s bucket in %v", status, list)
	return nil
}

func TestPIVersionsAndStatus(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := seed(t, env, "ada", entity.RoleAdmin)
	order := createOrder(t, env, admin.Token, map[string]interface{}{"poNumber": "PO-FIN", "currency": "USD"})
	orderID := order["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/financials/pis", map[string]interface{}{
		"orderId": orderID,
		"amount":  "1000.50",
	}, admin.Token)
	first := dataOf(t, mustStatus(t, w, http.StatusCreated))
	if first["version"] != float64(1) || first["status"] != entity.PIStatusDraft {
		t.Fatalf("first pi = %v", first)
	}
	if first["currency"] != "USD" {
		t.Errorf("currency = %v, want order currency USD", first["currency"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/financials/pis", map[string]interface{}{
		"orderId": orderID,
		"amount":  "200",
	}, admin.Token)
	second := dataOf(t, mustStatus(t, w, http.StatusCreated))
	if second["version"] != float64(2) {
		t.Errorf("second version = %v, want 2", second["version"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/financials/pis", map[string]interface{}{
		"orderId": orderID,
		"amount":  "-1",
	}, admin.Token)
	mustStatus(t, w, http.StatusBadRequest)

	piPath := apiBase + "/financials/pis/" + first["id"].(string) + "/status"
	w = testutil.DoRequest(env.Router, http.MethodPost, piPath, map[string]interface{}{"status": entity.PIStatusSent}, admin.Token)
	if got := dataOf(t, mustStatus(t, w, http.StatusOK))["status"]; got != entity.PIStatusSent {
		t.Errorf("status = %v, want sent", got)
	}
	// sent 不能回到 draft
	w = testutil.DoRequest(env.Router, http.MethodPost, piPath, map[string]interface{}{"status": entity.PIStatusDraft}, admin.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/financials/analytics/pipeline", nil, admin.Token)
	pipeline := dataOf(t, mustStatus(t, w, http.StatusOK))
	sent := bucket(t, pipeline["pi"], entity.PIStatusSent)
	if sent["count"] != float64(1) {
		t.Errorf("sent count = %v, want 1", sent["count"])
	}
	decimalField(t, sent, "amount", "1000.5")
	decimalField(t, bucket(t, pipeline["pi"], entity.PIStatusDraft), "amount", "200")
}

func TestLCLifecycle(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := seed(t, env, "mona", entity.RoleMerchandiser)
	order := createOrder(t, env, m.Token, map[string]interface{}{"poNumber": "PO-LC"})
	orderID := order["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/financials/lcs", map[string]interface{}{
		"orderId":    orderID,
		"lcNumber":   "LC-1",
		"amount":     "5000",
		"issueDate":  "2026-06-10",
		"expiryDate": "2026-06-01",
	}, m.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/financials/lcs", map[string]interface{}{
		"orderId":    orderID,
		"lcNumber":   "LC-1",
		"amount":     "5000",
		"issueDate":  "2026-06-01",
		"expiryDate": "2026-09-01",
	}, m.Token)
	lc := dataOf(t, mustStatus(t, w, http.StatusCreated))
	if lc["status"] != entity.LCStatusPending {
		t.Fatalf("lc status = %v, want pending", lc["status"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/financials/lcs", map[string]interface{}{
		"orderId":  orderID,
		"lcNumber": "LC-1",
	}, m.Token)
	mustStatus(t, w, http.StatusConflict)

	statusPath := apiBase + "/financials/lcs/" + lc["id"].(string) + "/status"
	w = testutil.DoRequest(env.Router, http.MethodPost, statusPath, map[string]interface{}{"status": entity.LCStatusIssued}, m.Token)
	mustStatus(t, w, http.StatusOK)
	w = testutil.DoRequest(env.Router, http.MethodPost, statusPath, map[string]interface{}{"status": entity.LCStatusPending}, m.Token)
	mustStatus(t, w, http.StatusBadRequest)

	// 其他跟单员看不到
	other := seed(t, env, "sam", entity.RoleMerchandiser)
	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/financials/lcs/"+lc["id"].(string), nil, other.Token)
	mustStatus(t, w, http.StatusNotFound)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/financials/lcs?orderId="+orderID, nil, m.Token)
	if list := items(t, mustStatus(t, w, http.StatusOK)); len(list) != 1 {
		t.Errorf("expected 1 lc, got %d", len(list))
	}
}
