package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

const apiBase = "/api/v1"

type apiUser struct {
	*entity.User
	Token string
}

func seed(t *testing.T, env *testutil.TestEnv, name, role string) apiUser {
	t.Helper()
	u := testutil.SeedUser(t, env.DB, name, fmt.Sprintf("%s@provabook.test", name), role)
	return apiUser{User: u, Token: testutil.TokenFor(u)}
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) map[string]interface{} {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
	return testutil.ParseResponse(w)
}

func dataOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return data
}

func items(t *testing.T, resp map[string]interface{}) []interface{} {
	t.Helper()
	list, _ := dataOf(t, resp)["items"].([]interface{})
	return list
}

// createOrder 创建订单；未给款式时补一个默认款式
func createOrder(t *testing.T, env *testutil.TestEnv, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	if _, ok := body["styles"]; !ok {
		body["styles"] = []interface{}{map[string]interface{}{
			"styleNumber": "DEFAULT",
			"lines":       []interface{}{map[string]interface{}{"colorCode": "WHT", "quantity": 10}},
		}}
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/orders", body, token)
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("create order status = %d; body = %s", w.Code, w.Body.String())
	}
	return dataOf(t, testutil.ParseResponse(w))
}

func getOrder(t *testing.T, env *testutil.TestEnv, token, id string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/orders/"+id, nil, token)
	return dataOf(t, mustStatus(t, w, http.StatusOK))
}

func styles(order map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	list, _ := order["styles"].([]interface{})
	for _, s := range list {
		out = append(out, s.(map[string]interface{}))
	}
	return out
}

func allLines(order map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, s := range styles(order) {
		list, _ := s["lines"].([]interface{})
		for _, l := range list {
			out = append(out, l.(map[string]interface{}))
		}
	}
	return out
}

func approvalOf(obj map[string]interface{}, gate string) string {
	m, _ := obj["approvalStatus"].(map[string]interface{})
	s, _ := m[gate].(string)
	return s
}
