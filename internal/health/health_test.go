package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sonaq/sonaq/pkg/scorer"
	scorermock "github.com/sonaq/sonaq/pkg/scorer/mock"
	"github.com/sonaq/sonaq/pkg/symbol"
)

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestHealthz_ContentType(t *testing.T) {
	h := New()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	h := New(
		Checker{Name: "scorer", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "symbols", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Checks["scorer"] != "ok" {
		t.Errorf("scorer check = %q, want %q", body.Checks["scorer"], "ok")
	}
	if body.Checks["symbols"] != "ok" {
		t.Errorf("symbols check = %q, want %q", body.Checks["symbols"], "ok")
	}
}

func TestReadyz_CheckerFails(t *testing.T) {
	h := New(
		Checker{Name: "scorer", Check: func(_ context.Context) error {
			return errors.New("model not loaded")
		}},
		Checker{Name: "symbols", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["scorer"] != "fail: model not loaded" {
		t.Errorf("scorer check = %q, want %q", body.Checks["scorer"], "fail: model not loaded")
	}
	if body.Checks["symbols"] != "ok" {
		t.Errorf("symbols check = %q, want %q", body.Checks["symbols"], "ok")
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestScorerCheck(t *testing.T) {
	sc := &scorermock.Scorer{Vocab: 4}

	if err := ScorerCheck(sc, 8).Check(context.Background()); err != nil {
		t.Errorf("healthy scorer failed check: %v", err)
	}

	sc.ScoreErr = errors.New("weights corrupted")
	if err := ScorerCheck(sc, 8).Check(context.Background()); err == nil {
		t.Error("failing scorer passed check")
	}

	// A grid narrower than the vocabulary must also fail.
	bad := &scorermock.Scorer{
		Vocab: 4,
		ScoreFunc: func(frames [][]float32) (scorer.Grid, error) {
			return scorermock.UniformGrid(len(frames), 2), nil
		},
	}
	if err := ScorerCheck(bad, 8).Check(context.Background()); err == nil {
		t.Error("misshapen grid passed check")
	}
}

func TestSymbolsCheck(t *testing.T) {
	tbl, err := symbol.FromReader(strings.NewReader("<blank> 0\na 1\nb 2\n"))
	if err != nil {
		t.Fatalf("symbol.FromReader: %v", err)
	}

	if err := SymbolsCheck(tbl, &scorermock.Scorer{Vocab: 3}).Check(context.Background()); err != nil {
		t.Errorf("covering table failed check: %v", err)
	}
	if err := SymbolsCheck(tbl, &scorermock.Scorer{Vocab: 10}).Check(context.Background()); err == nil {
		t.Error("undersized table passed check")
	}
}
