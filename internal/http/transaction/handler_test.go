package transaction_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	transactionhttp "github.com/MrJamesThe3rd/conciliacao/internal/http/transaction"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

func newRouter(t *testing.T) (http.Handler, *transaction.MockRepository) {
	t.Helper()

	repo := transaction.NewMockRepository(gomock.NewController(t))

	r := chi.NewRouter()
	r.Route("/transactions", transactionhttp.NewHandler(transaction.NewService(repo)).Routes)

	return r, repo
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Create(t *testing.T) {
	router, repo := newRouter(t)
	condoID := uuid.New()

	repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
		assert.Equal(t, condoID, tx.CondominiumID)
		assert.Equal(t, transaction.StatusPending, tx.Status)
		assert.Equal(t, int64(45000), tx.Amount)

		tx.ID = uuid.New()

		return nil
	})

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{
		"condominium_id": "`+condoID.String()+`",
		"type": "receita",
		"amount": 45000,
		"due_date": "2024-03-10T00:00:00Z",
		"payment_id": "E2E-1",
		"description": "Taxa condominial março - Apto 101"
	}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "2024-03-10", body["due_date"])
	assert.Equal(t, "pendente", body["status"])
	assert.Equal(t, false, body["reconciled"])
}

func TestHandler_Create_Validation(t *testing.T) {
	type testCase struct {
		name string
		body string
	}

	condo := uuid.NewString()

	tests := []testCase{
		{name: "MissingCondominium", body: `{"type":"receita","amount":1,"due_date":"2024-03-10T00:00:00Z"}`},
		{name: "BadType", body: `{"condominium_id":"` + condo + `","type":"x","amount":1,"due_date":"2024-03-10T00:00:00Z"}`},
		{name: "ZeroAmount", body: `{"condominium_id":"` + condo + `","type":"receita","amount":0,"due_date":"2024-03-10T00:00:00Z"}`},
		{name: "MissingDueDate", body: `{"condominium_id":"` + condo + `","type":"receita","amount":1}`},
		{name: "BadStatus", body: `{"condominium_id":"` + condo + `","type":"receita","status":"x","amount":1,"due_date":"2024-03-10T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newRouter(t)

			req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			assert.Equal(t, http.StatusBadRequest, serve(router, req).Code)
		})
	}
}

func TestHandler_Get(t *testing.T) {
	router, repo := newRouter(t)
	id, lineID := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	repo.EXPECT().GetTransaction(gomock.Any(), id).Return(&transaction.Transaction{
		ID:     id,
		Status: transaction.StatusApproved,
		Match:  &transaction.Match{StatementLineID: lineID, At: at},
	}, nil)
	repo.EXPECT().GetTransaction(gomock.Any(), gomock.Any()).Return(nil, transaction.ErrNotFound)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/transactions/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["reconciled"])
	assert.Equal(t, lineID.String(), body["statement_line_id"])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/transactions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_List(t *testing.T) {
	router, repo := newRouter(t)
	condoID := uuid.New()

	repo.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f transaction.ListFilter) ([]*transaction.Transaction, error) {
		require.NotNil(t, f.CondominiumID)
		assert.Equal(t, condoID, *f.CondominiumID)
		require.NotNil(t, f.Status)
		assert.Equal(t, transaction.StatusPending, *f.Status)
		require.NotNil(t, f.Reconciled)
		assert.False(t, *f.Reconciled)

		return []*transaction.Transaction{{ID: uuid.New()}}, nil
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/transactions?condominium_id="+condoID.String()+"&status=pendente&reconciled=false", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body, 1)
}

func TestHandler_UpdateStatus(t *testing.T) {
	router, repo := newRouter(t)
	id := uuid.New()

	repo.EXPECT().UpdateStatus(gomock.Any(), id, transaction.StatusCancelled).Return(nil)

	req := httptest.NewRequest(http.MethodPatch, "/transactions/"+id.String()+"/status", strings.NewReader(`{"status":"cancelado"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNoContent, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodPatch, "/transactions/"+id.String()+"/status", strings.NewReader(`{"status":"arquivado"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(router, req).Code)
}
