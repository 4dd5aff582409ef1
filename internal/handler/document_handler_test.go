package handler_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/testutil"
)

func TestDocumentUploadDownloadDelete(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)
	order := createOrder(t, env, merch.Token, map[string]interface{}{"poNumber": "PO-DOC"})
	id := order["id"].(string)
	base := apiBase + "/orders/" + id + "/documents"

	w := testutil.DoUpload(env.Router, base+"/upload",
		map[string]string{"category": "sample", "description": "first lab dip", "documentDate": "2026-02-01"},
		"labdip.pdf", []byte("%PDF-1.4 sample"), merch.Token)
	doc := dataOf(t, mustStatus(t, w, http.StatusCreated))
	docID := doc["id"].(string)
	if doc["fileName"] != "labdip.pdf" || doc["documentDate"] != "2026-02-01" {
		t.Errorf("document = %v", doc)
	}
	if env.Blob.Len() != 1 {
		t.Fatalf("blob objects = %d, want 1", env.Blob.Len())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, base+"/"+docID+"/download", nil, merch.Token)
	if w.Code != http.StatusOK || w.Body.String() != "%PDF-1.4 sample" {
		t.Fatalf("download = (%d, %q)", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "labdip.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, base+"?category=sample", nil, merch.Token)
	if got := items(t, mustStatus(t, w, http.StatusOK)); len(got) != 1 {
		t.Errorf("documents listed = %d, want 1", len(got))
	}

	w = testutil.DoRequest(env.Router, http.MethodDelete, base+"/"+docID, nil, merch.Token)
	mustStatus(t, w, http.StatusOK)
	if env.Blob.Len() != 0 {
		t.Errorf("blob not removed after delete")
	}
}

func TestDocumentPIReupload(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)
	order := createOrder(t, env, merch.Token, map[string]interface{}{"poNumber": "PO-PI"})
	base := apiBase + "/orders/" + order["id"].(string) + "/documents"

	w := testutil.DoUpload(env.Router, base+"/upload", map[string]string{"category": "pi"}, "pi-v1.pdf", []byte("v1"), merch.Token)
	mustStatus(t, w, http.StatusCreated)
	w = testutil.DoUpload(env.Router, base+"/upload", map[string]string{"category": "pi"}, "pi-v2.pdf", []byte("v2"), merch.Token)
	doc := dataOf(t, mustStatus(t, w, http.StatusCreated))
	if doc["fileName"] != "revised_PI.pdf" {
		t.Errorf("fileName = %v, want revised_PI.pdf", doc["fileName"])
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, base+"?category=pi", nil, merch.Token)
	if got := items(t, mustStatus(t, w, http.StatusOK)); len(got) != 1 {
		t.Errorf("pi documents = %d, want 1 after re-upload", len(got))
	}
	if env.Blob.Len() != 1 {
		t.Errorf("blob objects = %d, want 1", env.Blob.Len())
	}
}

func TestDocumentValidationAndStorageFailure(t *testing.T) {
	env := testutil.NewTestEnv(t)
	merch := seed(t, env, "merch", entity.RoleMerchandiser)
	order := createOrder(t, env, merch.Token, map[string]interface{}{"poNumber": "PO-BAD"})
	base := apiBase + "/orders/" + order["id"].(string) + "/documents"

	w := testutil.DoUpload(env.Router, base+"/upload", map[string]string{"category": "invoice"}, "a.pdf", []byte("x"), merch.Token)
	mustStatus(t, w, http.StatusBadRequest)

	w = testutil.DoUpload(env.Router, base+"/upload", map[string]string{"category": "sample"}, "a.pdf", []byte("x"), merch.Token)
	docID := dataOf(t, mustStatus(t, w, http.StatusCreated))["id"].(string)

	env.Blob.Fail = errors.New("connection refused")
	w = testutil.DoRequest(env.Router, http.MethodGet, base+"/"+docID+"/download", nil, merch.Token)
	resp := mustStatus(t, w, http.StatusInternalServerError)
	if msg, _ := resp["message"].(string); !strings.Contains(msg, "connection refused") {
		t.Errorf("message = %q, want upstream cause", msg)
	}
}
