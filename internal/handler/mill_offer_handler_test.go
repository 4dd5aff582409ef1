package handler_test

import (
	"net/http"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

func TestMillOfferCRUD(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := seed(t, env, "mona", entity.RoleMerchandiser)
	order := createOrder(t, env, m.Token, map[string]interface{}{"poNumber": "PO-MILL", "currency": "EUR"})
	orderID := order["id"].(string)
	lineID := allLines(order)[0]["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/mill-offers", map[string]interface{}{
		"orderId":  orderID,
		"lineId":   lineID,
		"millName": "  Square Mills ",
		"price":    "2.35",
	}, m.Token)
	offer := dataOf(t, mustStatus(t, w, http.StatusCreated))
	if offer["millName"] != "Square Mills" || offer["currency"] != "EUR" || offer["lineId"] != lineID {
		t.Fatalf("offer = %v", offer)
	}
	decimalField(t, offer, "price", "2.35")

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/mill-offers", map[string]interface{}{
		"orderId":  orderID,
		"millName": "Zero Mills",
		"price":    "0",
	}, m.Token)
	mustStatus(t, w, http.StatusBadRequest)

	path := apiBase + "/mill-offers/" + offer["id"].(string)
	w = testutil.DoRequest(env.Router, http.MethodPatch, path, map[string]interface{}{"price": "2.10", "lineId": ""}, m.Token)
	updated := dataOf(t, mustStatus(t, w, http.StatusOK))
	decimalField(t, updated, "price", "2.10")
	if updated["lineId"] != nil {
		t.Errorf("lineId = %v, want cleared", updated["lineId"])
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/mill-offers?orderId="+orderID, nil, m.Token)
	if list := items(t, mustStatus(t, w, http.StatusOK)); len(list) != 1 {
		t.Errorf("expected 1 offer, got %d", len(list))
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete, path, nil, m.Token)
	mustStatus(t, w, http.StatusOK)
	w = testutil.DoRequest(env.Router, http.MethodGet, path, nil, m.Token)
	mustStatus(t, w, http.StatusNotFound)
}
