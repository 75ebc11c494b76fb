package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/modules/ledger"
)

func setup(t *testing.T) (*ledger.Ledger, http.Handler) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	l := ledger.New(nil, logger)

	r := chi.NewRouter()
	NewHandler(l, logger).RegisterRoutes(r)
	return l, r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w, resp
}

func TestStoreTransaction_AttachesToPending(t *testing.T) {
	l, h := setup(t)
	l.Append(ledger.Record{UserAddress: "0xA", Amount: "100", AssetID: "RE-001"})

	w, resp := do(t, h, http.MethodPost, "/store-transaction", `{"tx_hash":"0xabc"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["updated"])
	assert.Equal(t, "Transaction hash 0xabc stored", resp["message"])
	assert.Equal(t, 1, l.Len())
}

func TestStoreTransaction_CreatesWithDefaults(t *testing.T) {
	l, h := setup(t)

	_, resp := do(t, h, http.MethodPost, "/store-transaction", `{"tx_hash":"0xabc","x402_payment_id":"x402_1"}`)

	assert.Equal(t, false, resp["updated"])
	record := resp["record"].(map[string]interface{})
	assert.Equal(t, "unknown", record["amount"])
	assert.Equal(t, "RE-001", record["asset_id"])
	assert.Equal(t, "pending", record["status"])
	assert.Equal(t, "unknown", record["user_address"])
	assert.Equal(t, float64(80002), record["chain_id"])
	assert.Equal(t, "x402_1", record["x402_payment_id"])
	assert.Equal(t, 1, l.Len())
}

func TestStoreTransaction_ByRecordID(t *testing.T) {
	l, h := setup(t)
	target := l.Append(ledger.Record{UserAddress: "0xA", Amount: "1"})
	l.Append(ledger.Record{UserAddress: "0xA", Amount: "2"})

	_, resp := do(t, h, http.MethodPost, "/store-transaction", `{"tx_hash":"0xid","record_id":"`+target.ID+`"}`)

	assert.Equal(t, true, resp["updated"])
	record := resp["record"].(map[string]interface{})
	assert.Equal(t, target.ID, record["id"])
	assert.Equal(t, "0xid", record["tx_hash"])
}

func TestStoreTransaction_Validation(t *testing.T) {
	_, h := setup(t)

	w, resp := do(t, h, http.MethodPost, "/store-transaction", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "tx_hash is required", resp["error"])

	w, _ = do(t, h, http.MethodPost, "/store-transaction", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/store-transaction", `{"tx_hash":"0x1","status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTransaction(t *testing.T) {
	l, h := setup(t)
	l.AttachHash("0xabc", nil, ledger.AttachDefaults{})

	w, resp := do(t, h, http.MethodPost, "/update-transaction", `{"tx_hash":"0xabc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["found"])
	assert.Equal(t, "Transaction 0xabc updated to confirmed", resp["message"])

	rec := l.All()[0]
	assert.Equal(t, ledger.StatusConfirmed, rec.Status)
	assert.NotNil(t, rec.ConfirmedAt)

	_, resp = do(t, h, http.MethodPost, "/update-transaction", `{"tx_hash":"0xmissing","status":"failed"}`)
	assert.Equal(t, false, resp["found"])

	w, _ = do(t, h, http.MethodPost, "/update-transaction", `{"status":"failed"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTransactions(t *testing.T) {
	l, h := setup(t)
	l.Append(ledger.Record{UserAddress: "0xAbC", Amount: "100", X402PaymentID: ledger.StringPtr("X")})
	l.AttachHash("0xh", ledger.StringPtr("X"), ledger.AttachDefaults{})
	l.Append(ledger.Record{UserAddress: "0xother", Amount: "5"})

	_, resp := do(t, h, http.MethodGet, "/transactions?address=0xabc", "")
	assert.Equal(t, float64(1), resp["count"])
	txs := resp["transactions"].([]interface{})
	require.Len(t, txs, 1)
	assert.Equal(t, "0xh", txs[0].(map[string]interface{})["tx_hash"])

	_, resp = do(t, h, http.MethodGet, "/transactions", "")
	assert.Equal(t, float64(2), resp["count"])

	_, resp = do(t, h, http.MethodGet, "/transactions?address=0xnobody", "")
	assert.Equal(t, float64(0), resp["count"])
	assert.Equal(t, []interface{}{}, resp["transactions"])
}
