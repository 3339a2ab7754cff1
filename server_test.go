package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func calcRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/calc/row", calcRowHandler)
	r.POST("/calc/totals", calcTotalsHandler)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCalcRowHandler(t *testing.T) {
	r := calcRouter()
	w := postJSON(t, r, "/calc/row", `{"quantity":"10","weight":"4","rate":"5"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("amount = %s, want 20 (weight-priced)", resp.Amount)
	}
}

func TestCalcTotalsPrefersRecordedAmounts(t *testing.T) {
	r := calcRouter()
	// Two lines carry only a recorded amount, one is computed from
	// quantity and rate.
	w := postJSON(t, r, "/calc/totals", `{"lines":[
		{"weight":"2","amount":"20"},
		{"weight":"1.5","amount":"47.5"},
		{"quantity":"10","rate":"5"}
	]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		TotalAmount decimal.Decimal `json:"total_amount"`
		TotalWeight decimal.Decimal `json:"total_weight"`
		Subtotal    decimal.Decimal `json:"subtotal"`
		Total       decimal.Decimal `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.TotalAmount.Equal(decimal.NewFromFloat(117.5)) {
		t.Errorf("total_amount = %s, want 117.5", resp.TotalAmount)
	}
	if !resp.TotalWeight.Equal(decimal.NewFromFloat(3.5)) {
		t.Errorf("total_weight = %s, want 3.5", resp.TotalWeight)
	}
	if !resp.Subtotal.Equal(decimal.NewFromFloat(117.5)) {
		t.Errorf("subtotal = %s, want 117.5", resp.Subtotal)
	}
	if !resp.Total.Equal(decimal.NewFromFloat(117.5)) {
		t.Errorf("total = %s, want 117.5", resp.Total)
	}
}

func TestCalcTotalsRecordedAmountOverridesComputed(t *testing.T) {
	r := calcRouter()
	// Recorded amount wins even when quantity/weight/rate are present.
	w := postJSON(t, r, "/calc/totals", `{"lines":[
		{"quantity":"10","rate":"5","amount":"47.5"}
	]}`)
	var resp struct {
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.TotalAmount.Equal(decimal.NewFromFloat(47.5)) {
		t.Fatalf("total_amount = %s, want recorded 47.5", resp.TotalAmount)
	}
}
