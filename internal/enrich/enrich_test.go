package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func geminiServer(t *testing.T, status int, text string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)

		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, string(body), `"responseMimeType":"application/json"`)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`)
			return
		}
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestParser(t *testing.T, srv *httptest.Server) *GeminiParser {
	t.Helper()
	p, err := NewGeminiParser(context.Background(),
		[]option.ClientOption{option.WithEndpoint(srv.URL + "/"), option.WithHTTPClient(srv.Client())},
		WithModel("gemini-test"), WithLogger(log.Discard()))
	require.NoError(t, err)
	return p
}

func TestGeminiParse(t *testing.T) {
	srv, calls := geminiServer(t, http.StatusOK, `{"description":"Coffee at Mario's","amount":3.5,"categoryName":"food"}`)
	p := newTestParser(t, srv)
	names := []string{"Food", "Other"}

	s, err := p.Parse(context.Background(), "Paid EUR 3,50 at Mario's", names)
	require.NoError(t, err)
	assert.Equal(t, "Coffee at Mario's", s.Description)
	assert.Equal(t, "3.500", s.Amount.Display())
	assert.Equal(t, "food", s.CategoryName)

	again, err := p.Parse(context.Background(), "  Paid EUR 3,50 at Mario's ", names)
	require.NoError(t, err)
	assert.Equal(t, s, again)
	assert.EqualValues(t, 1, calls.Load(), "second parse served from cache")
}

func TestGeminiParseCacheKeepsCase(t *testing.T) {
	srv, calls := geminiServer(t, http.StatusOK, `{"description":"Coffee","amount":2,"categoryName":"Food"}`)
	p := newTestParser(t, srv)
	names := []string{"Food"}
	ctx := context.Background()

	_, err := p.Parse(ctx, "Coffee 2", names)
	require.NoError(t, err)
	_, err = p.Parse(ctx, "coffee 2", names)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load(), "texts differing in case are parsed separately")

	_, err = p.Parse(ctx, "Coffee 2", names)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load(), "exact repeat served from cache")
}

func TestGeminiParseAmountAsString(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusOK, "```json\n{\"description\":\"Taxi\",\"amount\":\"12.25\",\"categoryName\":\"Transport\"}\n```")
	s, err := newTestParser(t, srv).Parse(context.Background(), "taxi 12.25", nil)
	require.NoError(t, err)
	assert.Equal(t, "12.250", s.Amount.Display())
}

func TestGeminiParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		text   string
		want   error
	}{
		{name: "api error", status: http.StatusBadRequest},
		{name: "not json", status: http.StatusOK, text: "I could not find an expense", want: ErrUnusable},
		{name: "zero amount", status: http.StatusOK, text: `{"description":"x","amount":0,"categoryName":"Other"}`, want: core.ErrInvalidAmount},
		{name: "blank content", status: http.StatusOK, text: "  ", want: ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := geminiServer(t, tt.status, tt.text)
			p := newTestParser(t, srv)

			_, err := p.Parse(context.Background(), "something", []string{"Other"})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrEnrichmentFailed)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}

			_, err = p.Parse(context.Background(), "something", []string{"Other"})
			require.Error(t, err)
			assert.EqualValues(t, 2, calls.Load(), "failures are not cached")
		})
	}
}

func TestGeminiParseEmptyText(t *testing.T) {
	srv, calls := geminiServer(t, http.StatusOK, "{}")
	_, err := newTestParser(t, srv).Parse(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.ErrorIs(t, err, core.ErrEnrichmentFailed)
	assert.Zero(t, calls.Load())
}

func TestMatchCategory(t *testing.T) {
	cats := []core.Category{
		{ID: "c1", Name: "Food"},
		{ID: "c2", Name: "Other"},
		{ID: "c3", Name: "Transport"},
	}
	tests := []struct {
		name  string
		guess string
		want  string
		ok    bool
	}{
		{"exact", "Transport", "c3", true},
		{"case insensitive", "fOOD", "c1", true},
		{"unknown falls back", "Groceries", "c2", true},
		{"empty falls back", "", "c2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := MatchCategory(Suggestion{CategoryName: tt.guess}, cats)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, c.ID)
		})
	}

	_, ok := MatchCategory(Suggestion{CategoryName: "Groceries"}, cats[:1])
	assert.False(t, ok)
}

func TestSuggestionForm(t *testing.T) {
	cats := []core.Category{{ID: "c1", Name: "Food"}, {ID: "c2", Name: "Other"}}
	s := Suggestion{Description: "Lunch", Amount: core.MustMoney("8.5"), CategoryName: "food"}

	f := s.Form(cats)
	assert.Equal(t, core.ExpenseForm{Description: "Lunch", Amount: "8.500", CategoryID: "c1"}, f)
	assert.Equal(t, []string{"Food", "Other"}, Names(cats))
}
