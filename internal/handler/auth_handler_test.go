package handler_test

import (
	"net/http"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

func TestAuthFlow(t *testing.T) {
	env := testutil.NewTestEnv(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/register", map[string]interface{}{
		"fullName": "Rina Akter",
		"email":    "Rina@Provabook.test",
		"password": "supersecret",
	}, "")
	reg := dataOf(t, mustStatus(t, w, http.StatusCreated))
	user := reg["user"].(map[string]interface{})
	if user["email"] != "rina@provabook.test" || user["role"] != entity.RoleMerchandiser {
		t.Errorf("registered user = %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Errorf("password hash leaked in response")
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/register", map[string]interface{}{
		"fullName": "Dup", "email": "rina@provabook.test", "password": "supersecret",
	}, "")
	mustStatus(t, w, http.StatusConflict)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/login", map[string]interface{}{
		"email": "rina@provabook.test", "password": "wrong-password",
	}, "")
	mustStatus(t, w, http.StatusUnauthorized)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/login", map[string]interface{}{
		"email": "rina@provabook.test", "password": "supersecret",
	}, "")
	login := dataOf(t, mustStatus(t, w, http.StatusOK))
	access := login["accessToken"].(string)
	refresh := login["refreshToken"].(string)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/auth/me", nil, access)
	if me := dataOf(t, mustStatus(t, w, http.StatusOK)); me["fullName"] != "Rina Akter" {
		t.Errorf("me = %v", me)
	}

	// refresh token 不能访问接口
	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/auth/me", nil, refresh)
	mustStatus(t, w, http.StatusUnauthorized)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/refresh", map[string]interface{}{"refreshToken": refresh}, "")
	pair := dataOf(t, mustStatus(t, w, http.StatusOK))
	if pair["accessToken"] == "" {
		t.Fatalf("refresh returned no access token")
	}

	// 旧 refresh token 只能用一次
	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/refresh", map[string]interface{}{"refreshToken": refresh}, "")
	mustStatus(t, w, http.StatusUnauthorized)

	newRefresh := pair["refreshToken"].(string)
	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/logout", map[string]interface{}{"refreshToken": newRefresh}, pair["accessToken"].(string))
	mustStatus(t, w, http.StatusOK)
	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/auth/refresh", map[string]interface{}{"refreshToken": newRefresh}, "")
	mustStatus(t, w, http.StatusUnauthorized)
}

func TestUserAdminRoutes(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := seed(t, env, "admin", entity.RoleAdmin)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)

	w := testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/users", nil, merch.Token)
	mustStatus(t, w, http.StatusForbidden)

	w = testutil.DoRequest(env.Router, http.MethodPost, apiBase+"/users", map[string]interface{}{
		"fullName": "New Manager", "email": "mgr@provabook.test", "password": "password123", "role": entity.RoleManager,
	}, admin.Token)
	created := dataOf(t, mustStatus(t, w, http.StatusCreated))
	if created["role"] != entity.RoleManager {
		t.Errorf("created role = %v", created["role"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPatch, apiBase+"/users/"+admin.ID, map[string]interface{}{"isActive": false}, admin.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoRequest(env.Router, http.MethodGet, apiBase+"/users?role=manager", nil, admin.Token)
	if got := items(t, mustStatus(t, w, http.StatusOK)); len(got) != 1 {
		t.Errorf("managers listed = %d, want 1", len(got))
	}
}
