package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/terra-clan/wellness-hub/pkg/client"
)

func reply(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func TestWritesFromOutsideThePackage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/resources", func(w http.ResponseWriter, r *http.Request) {
		var in client.ResourceInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		reply(w, http.StatusCreated, client.Resource{ID: "r1", Title: in.Title, Category: in.Category, Duration: in.Duration})
	})
	mux.HandleFunc("/api/v1/diagnostics/stress", func(w http.ResponseWriter, r *http.Request) {
		var sub client.DiagnosticSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("decode: %v", err)
		}
		reply(w, http.StatusCreated, client.DiagnosticResult{ID: "d1", Kind: client.KindStress, TotalScore: len(sub.Answers)})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := client.NewClient(srv.URL, "anon-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	minutes := 10
	res, err := c.CreateResource(ctx, client.ResourceInput{Title: "Respiration", Category: "Sleep", Duration: &minutes, IsActive: true})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if res.ID != "r1" || res.Duration == nil || *res.Duration != 10 {
		t.Fatalf("unexpected resource: %+v", res)
	}

	result, err := c.SubmitStress(ctx, client.Answers{{QuestionID: "q1", Answer: 2}, {QuestionID: "q2", Answer: 3}})
	if err != nil {
		t.Fatalf("submit stress: %v", err)
	}
	if result.Kind != client.KindStress || result.TotalScore != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
