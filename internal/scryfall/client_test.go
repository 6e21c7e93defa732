package scryfall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
	"github.com/ramonehamilton/deckstats/internal/models"
)

func newTestClient(serverURL string) *Client {
	return NewClient(
		WithBaseURL(serverURL),
		WithRateLimit(time.Millisecond),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
	)
}

func TestNewClient(t *testing.T) {
	client := NewClient()

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}
	if client.rateLimiter == nil {
		t.Error("rateLimiter is nil")
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
	if client.userAgent == "" {
		t.Error("userAgent is empty")
	}
}

func TestClient_RateLimiting(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"set","code":"tst","name":"Test"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(50*time.Millisecond))
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.GetSet(ctx, "tst"); err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
	}
	elapsed := time.Since(start)

	if n := atomic.LoadInt32(&requestCount); n != 3 {
		t.Errorf("Expected 3 requests, got %d", n)
	}

	// Two waits of 50ms between three requests
	if elapsed < 100*time.Millisecond {
		t.Errorf("Rate limiting not working: completed 3 requests in %v", elapsed)
	}
}

func TestClient_NotFoundError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"object":"error","code":"not_found","status":404,"details":"No cards found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchCards(context.Background(), "set:zzz")
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
	if !dataerr.IsNotFound(err) {
		t.Error("Expected errors.Is(err, dataerr.ErrNotFound) to hold")
	}
}

func TestClient_RetryOnRateLimit(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"object":"set","code":"tst","name":"Test"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	set, err := client.GetSet(context.Background(), "tst")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if set.Name != "Test" {
		t.Errorf("Expected set name 'Test', got %q", set.Name)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetSet(context.Background(), "tst")
	if err == nil {
		t.Fatal("Expected error after retries, got nil")
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"object":"error","code":"bad_request","status":400,"details":"Invalid query"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchCards(context.Background(), "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.Status)
	}
}

func TestClient_SearchAllFollowsPages(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "":
			if got := r.URL.Query().Get("q"); got != "set:tst" {
				t.Errorf("Unexpected query: %q", got)
			}
			fmt.Fprintf(w, `{"object":"list","has_more":true,"next_page":"%s/cards/search?q=set:tst&page=2","data":[
				{"name":"Bolt","cmc":1,"type_line":"Instant","rarity":"common","color_identity":["R"]}
			]}`, server.URL)
		case "2":
			w.Write([]byte(`{"object":"list","has_more":false,"data":[
				{"name":"Dragon","cmc":5,"type_line":"Creature — Dragon","rarity":"mythic","color_identity":["R"]}
			]}`))
		default:
			t.Errorf("Unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	cards, err := client.SearchAll(context.Background(), "set:tst")
	if err != nil {
		t.Fatalf("SearchAll failed: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[1].Name != "Dragon" {
		t.Errorf("Expected second card 'Dragon', got %q", cards[1].Name)
	}
}

func TestClient_FetchSetCards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list","has_more":false,"data":[
			{"name":"Bolt","cmc":1,"type_line":"Instant","rarity":"common","color_identity":["R"]},
			{"name":"Bolt","cmc":1,"type_line":"Instant","rarity":"special","color_identity":["R"]},
			{"name":"Mirror // Image","cmc":3,"rarity":"rare","color_identity":["U","W"],
			 "card_faces":[{"name":"Mirror","type_line":"Creature — Shapeshifter"},{"name":"Image","type_line":"Sorcery"}]}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	records, err := client.FetchSetCards(context.Background(), "TST")
	if err != nil {
		t.Fatalf("FetchSetCards failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 unique cards, got %d", len(records))
	}
	if records[0].Rarity != models.RarityCommon {
		t.Errorf("Expected first printing to win, got rarity %q", records[0].Rarity)
	}

	mirror := records[1]
	if mirror.TypeLine != "Creature — Shapeshifter // Sorcery" {
		t.Errorf("Unexpected face type line: %q", mirror.TypeLine)
	}
	if len(mirror.ColorIdentity) != 2 || mirror.ColorIdentity[0] != "W" {
		t.Errorf("Expected WUBRG-sorted colors, got %v", mirror.ColorIdentity)
	}
}

func TestClient_FetchSetCardsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list","has_more":false,"data":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchSetCards(context.Background(), "tst")
	if !dataerr.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestSetName(t *testing.T) {
	if got := SetName("BLB"); got != "Bloomburrow" {
		t.Errorf("SetName(BLB) = %q", got)
	}
	if got := SetName("xyz"); got != "xyz" {
		t.Errorf("SetName(xyz) = %q", got)
	}
}
