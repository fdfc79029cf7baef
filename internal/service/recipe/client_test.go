package recipe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_FindByIngredients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("ingredients"); got != "apple,banana" {
			t.Errorf("Expected ingredients apple,banana, got %q", got)
		}
		if got := q.Get("number"); got != "2" {
			t.Errorf("Expected number 2, got %q", got)
		}
		if got := q.Get("apiKey"); got != "secret" {
			t.Errorf("Expected apiKey secret, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"title":"Apple banana bread"}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret", server.Client())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	body, err := client.FindByIngredients(context.Background(), []string{"apple", " banana ", ""}, 0)
	if err != nil {
		t.Fatalf("FindByIngredients failed: %v", err)
	}
	if string(body) != `[{"id":1,"title":"Apple banana bread"}]` {
		t.Errorf("Provider JSON not forwarded verbatim: %s", body)
	}
}

func TestClient_FindByIngredientsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota"}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	tests := []struct {
		name        string
		apiKey      string
		ingredients []string
		wantErr     error
	}{
		{"no key", "", []string{"apple"}, ErrNotConfigured},
		{"no ingredients", "k", []string{" ", ""}, ErrNoIngredients},
		{"provider error", "k", []string{"apple"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient(server.URL, tt.apiKey, server.Client())
			_, err := client.FindByIngredients(context.Background(), tt.ingredients, 2)
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
