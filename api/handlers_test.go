/*
handlers_test.go - HTTP-level tests for the ledger API

Tests drive the full router with a real SQLite store, exercising the
JSON contract and the domain-error-to-status mapping end to end.
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/invoice-engine/invoice"
	"github.com/warp/invoice-engine/store/sqlite"
)

var testDue = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	server *httptest.Server
	svc    *invoice.Service

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := invoice.NewService(store, &invoice.SequenceGenerator{Prefix: "id"}, store)
	svc.Now = func() time.Time {
		env.mu.Lock()
		defer env.mu.Unlock()
		return env.now
	}
	env.svc = svc

	env.server = httptest.NewServer(NewRouter(NewHandler(svc)))
	t.Cleanup(env.server.Close)
	return env
}

// do issues a JSON request and decodes the response body into out (when
// out is non-nil). Returns the status code.
func (e *testEnv) do(t *testing.T, method, path string, body any, out any, headers ...string) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// createSentLedger drives create -> add item -> finalize over HTTP and
// returns the sent ledger.
func (e *testEnv) createSentLedger(t *testing.T) LedgerDTO {
	t.Helper()
	var l LedgerDTO
	status := e.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "eur", DueDate: "2026-03-31"}, &l)
	require.Equal(t, http.StatusCreated, status)

	status = e.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/items",
		AddItemRequest{Description: "Consulting", Quantity: 2, UnitPrice: "100.00", VATRate: "21"}, &l)
	require.Equal(t, http.StatusOK, status)

	status = e.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/finalize",
		nil, &l, "X-Actor-ID", "user-1")
	require.Equal(t, http.StatusOK, status)
	return l
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestAPI_FullInvoiceLifecycle(t *testing.T) {
	// GIVEN: a running server
	// WHEN: create -> add item -> finalize -> pay in full, over HTTP
	// THEN: each response reflects the lifecycle and the derived totals

	env := setupTestServer(t)

	var l LedgerDTO
	status := env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "eur", DueDate: "2026-03-31"}, &l)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "INV-0001", l.Number)
	assert.Equal(t, "draft", l.Status)
	assert.Equal(t, "EUR", l.Currency)

	status = env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/items",
		AddItemRequest{Description: "Consulting", Quantity: 2, UnitPrice: "100.00", VATRate: "21"}, &l)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200.00", l.Totals.Subtotal.Amount)
	assert.Equal(t, "42.00", l.Totals.VATTotal.Amount)
	assert.Equal(t, "242.00", l.Totals.GrandTotal.Amount)
	assert.Equal(t, int64(24200), l.Totals.GrandTotal.MinorUnits)

	status = env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/finalize",
		nil, &l, "X-Actor-ID", "user-1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sent", l.Status)
	assert.Equal(t, "2026-03-01", l.IssueDate)
	assert.Equal(t, "user-1", l.IssuedBy)

	status = env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/payments",
		RecordPaymentRequest{Amount: "242.00", Method: "bank_transfer", Reference: "wire-42"}, &l)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", l.Status)
	assert.Equal(t, "0.00", l.Totals.AmountDue.Amount)
	require.Len(t, l.Payments, 1)
	assert.Equal(t, "wire-42", l.Payments[0].Reference)
}

func TestAPI_ListFiltersByStatus(t *testing.T) {
	env := setupTestServer(t)
	env.createSentLedger(t)

	var draft LedgerDTO
	status := env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "EUR", DueDate: "2026-04-30"}, &draft)
	require.Equal(t, http.StatusCreated, status)

	var all []LedgerDTO
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/ledgers", nil, &all))
	assert.Len(t, all, 2)

	var sent []LedgerDTO
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/ledgers?status=sent", nil, &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "INV-0001", sent[0].Number)
}

func TestAPI_RemoveItemOnDraft(t *testing.T) {
	env := setupTestServer(t)

	var l LedgerDTO
	env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "EUR", DueDate: "2026-03-31"}, &l)
	env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/items",
		AddItemRequest{Description: "Consulting", Quantity: 1, UnitPrice: "50.00", VATRate: "21"}, &l)
	require.Len(t, l.Items, 1)

	status := env.do(t, http.MethodDelete,
		"/api/ledgers/"+l.ID+"/items/"+l.Items[0].ID, nil, &l)

	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, l.Items)
	assert.Equal(t, "0.00", l.Totals.GrandTotal.Amount)
}

func TestAPI_ReversePayment(t *testing.T) {
	env := setupTestServer(t)
	l := env.createSentLedger(t)

	status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/payments",
		RecordPaymentRequest{Amount: "100.00", Method: "card"}, &l)
	require.Equal(t, http.StatusOK, status)

	status = env.do(t, http.MethodPost,
		"/api/ledgers/"+l.ID+"/payments/"+l.Payments[0].ID+"/reverse", nil, &l)

	require.Equal(t, http.StatusOK, status)
	require.Len(t, l.Payments, 2)
	assert.Equal(t, l.Payments[0].ID, l.Payments[1].Reverses)
	assert.Equal(t, "242.00", l.Totals.AmountDue.Amount)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_UnknownLedgerIs404(t *testing.T) {
	env := setupTestServer(t)

	var errResp ErrorResponse
	status := env.do(t, http.MethodGet, "/api/ledgers/led-missing", nil, &errResp)

	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, errResp.Error)
}

func TestAPI_FinalizeEmptyDraftIs400(t *testing.T) {
	env := setupTestServer(t)
	var l LedgerDTO
	env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "EUR", DueDate: "2026-03-31"}, &l)

	status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/finalize",
		nil, nil, "X-Actor-ID", "user-1")

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_FinalizeWithoutActorIs400(t *testing.T) {
	env := setupTestServer(t)
	var l LedgerDTO
	env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "EUR", DueDate: "2026-03-31"}, &l)

	status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/finalize", nil, nil)

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_AddItemAfterFinalizeIs409(t *testing.T) {
	env := setupTestServer(t)
	l := env.createSentLedger(t)

	status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/items",
		AddItemRequest{Description: "Late", Quantity: 1, UnitPrice: "10.00", VATRate: "21"}, nil)

	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_PaymentOnDraftIs409(t *testing.T) {
	env := setupTestServer(t)
	var l LedgerDTO
	env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "EUR", DueDate: "2026-03-31"}, &l)

	status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/payments",
		RecordPaymentRequest{Amount: "10.00", Method: "cash"}, nil)

	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_MalformedInputsAre400(t *testing.T) {
	env := setupTestServer(t)
	var l LedgerDTO
	env.do(t, http.MethodPost, "/api/ledgers",
		CreateLedgerRequest{Currency: "EUR", DueDate: "2026-03-31"}, &l)

	cases := []struct {
		name string
		req  AddItemRequest
	}{
		{"sub-cent price", AddItemRequest{Description: "x", Quantity: 1, UnitPrice: "10.005", VATRate: "21"}},
		{"bad rate", AddItemRequest{Description: "x", Quantity: 1, UnitPrice: "10.00", VATRate: "twenty"}},
		{"rate out of range", AddItemRequest{Description: "x", Quantity: 1, UnitPrice: "10.00", VATRate: "150"}},
		{"zero quantity", AddItemRequest{Description: "x", Quantity: 0, UnitPrice: "10.00", VATRate: "21"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/items", tc.req, nil)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestAPI_CancelFromTerminalIs409(t *testing.T) {
	env := setupTestServer(t)
	l := env.createSentLedger(t)
	env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/payments",
		RecordPaymentRequest{Amount: "242.00", Method: "bank_transfer"}, &l)
	require.Equal(t, "paid", l.Status)

	status := env.do(t, http.MethodPost, "/api/ledgers/"+l.ID+"/cancel",
		nil, nil, "X-Actor-ID", "user-2")

	assert.Equal(t, http.StatusConflict, status)
}

// =============================================================================
// REMINDERS AND ADMIN
// =============================================================================

func TestAPI_ReminderEligibility(t *testing.T) {
	env := setupTestServer(t)
	l := env.createSentLedger(t)

	var rem ReminderDTO
	status := env.do(t, http.MethodGet,
		"/api/ledgers/"+l.ID+"/reminder?now=2026-04-01T00:00:00Z", nil, &rem)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, rem.Due)

	status = env.do(t, http.MethodGet,
		"/api/ledgers/"+l.ID+"/reminder?now=2026-04-01T00:00:00Z&last_reminder_at=2026-03-30T00:00:00Z",
		nil, &rem)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, rem.Due, "interval has not elapsed")
}

func TestAPI_SweepOverdue(t *testing.T) {
	// GIVEN: a sent ledger whose due date has passed
	// WHEN: the admin sweep runs
	// THEN: it reports one transition and the ledger reads back overdue

	env := setupTestServer(t)
	l := env.createSentLedger(t)
	env.setNow(testDue.Add(24 * time.Hour))

	var sweep SweepResponse
	status := env.do(t, http.MethodPost, "/api/admin/sweep-overdue", nil, &sweep)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, sweep.MarkedOverdue)

	var got LedgerDTO
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/ledgers/"+l.ID, nil, &got))
	assert.Equal(t, "overdue", got.Status)

	// Second sweep finds nothing left to move.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/sweep-overdue", nil, &sweep))
	assert.Equal(t, 0, sweep.MarkedOverdue)
}

func TestAPI_DocumentIsPDF(t *testing.T) {
	env := setupTestServer(t)
	l := env.createSentLedger(t)

	resp, err := http.Get(env.server.URL + "/api/ledgers/" + l.ID + "/document")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}
