package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetListBuildsFrappeQuery(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"item_code":"A001","actual_qty":42}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "key123", "secret456")
	rows, err := client.GetList(context.Background(), "Bin", ListOptions{
		Fields:  []string{"item_code", "actual_qty"},
		Filters: map[string]interface{}{"item_code": []interface{}{"like", "%A001%"}},
		OrderBy: "modified desc",
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}

	if gotPath != "/api/resource/Bin" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "token key123:secret456" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if got := gotQuery["fields"]; len(got) != 1 || got[0] != `["item_code","actual_qty"]` {
		t.Errorf("fields = %v", got)
	}
	if got := gotQuery["filters"]; len(got) != 1 || !strings.Contains(got[0], `"like"`) {
		t.Errorf("filters = %v", got)
	}
	if got := gotQuery["order_by"]; len(got) != 1 || got[0] != "modified desc" {
		t.Errorf("order_by = %v", got)
	}
	if got := gotQuery["limit_page_length"]; len(got) != 1 || got[0] != "10" {
		t.Errorf("limit_page_length = %v", got)
	}

	if len(rows) != 1 || rows[0]["item_code"] != "A001" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestGetListOmitsEmptyParams(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k", "s")
	if _, err := client.GetList(context.Background(), "Item", ListOptions{}); err != nil {
		t.Fatalf("GetList: %v", err)
	}
	for _, key := range []string{"fields", "filters", "or_filters", "order_by", "limit_page_length"} {
		if _, present := gotQuery[key]; present {
			t.Errorf("empty option %q was sent", key)
		}
	}
}

func TestCountDecodesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/method/frappe.client.get_count" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("doctype"); got != "Sales Order" {
			t.Errorf("doctype = %q", got)
		}
		if got := r.URL.Query().Get("filters"); !strings.Contains(got, `"docstatus":1`) {
			t.Errorf("filters = %q", got)
		}
		w.Write([]byte(`{"message":17}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k", "s")
	count, err := client.Count(context.Background(), "Sales Order", map[string]interface{}{"docstatus": 1})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 17 {
		t.Errorf("count = %d, want 17", count)
	}
}

func TestGetListSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"exc_type":"PermissionError"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "k", "s")
	_, err := client.GetList(context.Background(), "Item", ListOptions{})
	if err == nil {
		t.Fatal("expected an error for a 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "PermissionError") {
		t.Errorf("error %q does not carry status and body", err)
	}
}
