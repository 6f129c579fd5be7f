package statement_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/auth"
	statementhttp "github.com/MrJamesThe3rd/conciliacao/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/importer"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

type fakeService struct {
	lines       map[uuid.UUID]*statement.Line
	listFilter  statement.ListFilter
	imported    statement.ImportParams
	importErr   error
	categoryErr error
}

func (f *fakeService) List(_ context.Context, filter statement.ListFilter) (*statement.Page, error) {
	f.listFilter = filter

	var lines []*statement.Line
	for _, l := range f.lines {
		lines = append(lines, l)
	}

	return &statement.Page{Lines: lines, Total: len(lines), Page: 1, Limit: 50, TotalPages: 1}, nil
}

func (f *fakeService) Get(_ context.Context, id uuid.UUID) (*statement.Line, error) {
	l, ok := f.lines[id]
	if !ok {
		return nil, statement.ErrNotFound
	}

	return l, nil
}

func (f *fakeService) SetCategory(_ context.Context, id uuid.UUID, category, actor string) (*statement.Line, error) {
	if f.categoryErr != nil {
		return nil, f.categoryErr
	}

	l, ok := f.lines[id]
	if !ok {
		return nil, statement.ErrNotFound
	}

	updated := statement.AppendEvent(*l, statement.Event{Type: statement.EventManualCategorized, Actor: actor})
	updated.Category = category

	return &updated, nil
}

func (f *fakeService) Import(_ context.Context, params statement.ImportParams) (*statement.ImportResult, error) {
	f.imported = params
	if f.importErr != nil {
		return nil, f.importErr
	}

	return &statement.ImportResult{
		Total:    len(params.Rows),
		Inserted: len(params.Rows),
		Detail:   []statement.RowDetail{{Row: 2, Document: "E2E-1", Status: statement.RowImported}},
	}, nil
}

type fakeReconciler struct {
	manual      reconciliation.ManualParams
	unreconcile reconciliation.UnreconcileParams
	err         error
}

func (f *fakeReconciler) ReconcileManual(_ context.Context, p reconciliation.ManualParams) (*statement.Line, error) {
	f.manual = p
	if f.err != nil {
		return nil, f.err
	}

	return &statement.Line{
		ID:    p.LineID,
		Date:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Match: &statement.Match{TransactionID: p.TransactionID, Score: 100, By: p.Actor, Method: statement.MethodManual},
	}, nil
}

func (f *fakeReconciler) Unreconcile(_ context.Context, p reconciliation.UnreconcileParams) (*statement.Line, error) {
	f.unreconcile = p
	if f.err != nil {
		return nil, f.err
	}

	return &statement.Line{ID: p.LineID}, nil
}

type fixture struct {
	svc        *fakeService
	reconciler *fakeReconciler
	router     http.Handler
}

func newFixture() fixture {
	f := fixture{
		svc:        &fakeService{lines: map[uuid.UUID]*statement.Line{}},
		reconciler: &fakeReconciler{},
	}

	h := statementhttp.NewHandler(f.svc, importer.NewService(), f.reconciler)

	r := chi.NewRouter()
	r.Use(auth.Actor(""))
	r.Route("/statements", h.Routes)
	f.router = r

	return f
}

func (f fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	return body
}

func TestHandler_Get(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.svc.lines[id] = &statement.Line{
		ID:      id,
		Date:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:  45000,
		History: "PIX RECEBIDO",
		Pix:     &statement.Pix{TransactionID: "E2E-1"},
	}

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/statements/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "2024-03-10", body["data"])
	assert.Equal(t, "E2E-1", body["pix_id"])
	assert.Equal(t, false, body["conciliado"])
	assert.InDelta(t, 45000, body["valor"], 0)
}

func TestHandler_Get_Errors(t *testing.T) {
	f := newFixture()

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/statements/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/statements/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"nao_encontrado"`)
}

func TestHandler_List(t *testing.T) {
	f := newFixture()
	condoID := uuid.New()

	rec := f.do(t, httptest.NewRequest(http.MethodGet,
		"/statements?condominium_id="+condoID.String()+"&reconciled=false&start_date=2024-03-01&page=2&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, f.svc.listFilter.CondominiumID)
	assert.Equal(t, condoID, *f.svc.listFilter.CondominiumID)
	require.NotNil(t, f.svc.listFilter.Reconciled)
	assert.False(t, *f.svc.listFilter.Reconciled)
	assert.Equal(t, 2, f.svc.listFilter.Page)
	assert.Equal(t, 10, f.svc.listFilter.Limit)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/statements?reconciled=talvez", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, fields map[string]string, file string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	if file != "" {
		part, err := w.CreateFormFile("file", "extrato.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(file))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func TestHandler_Import(t *testing.T) {
	f := newFixture()
	accountID, condoID := uuid.New(), uuid.New()

	body, contentType := multipartBody(t, map[string]string{
		"account_id":     accountID.String(),
		"condominium_id": condoID.String(),
		"format":         "csv",
	}, "Data;Histórico;Documento;Valor\n10/03/2024;PIX RECEBIDO;E2E-1;450,00\n")

	req := httptest.NewRequest(http.MethodPost, "/statements/import", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, accountID, f.svc.imported.AccountID)
	assert.Equal(t, condoID, f.svc.imported.CondominiumID)
	require.Len(t, f.svc.imported.Rows, 1)
	assert.Equal(t, int64(45000), f.svc.imported.Rows[0].Params.Amount)

	resp := decode(t, rec)
	assert.InDelta(t, 1, resp["importados"], 0)
}

func TestHandler_Import_Errors(t *testing.T) {
	type testCase struct {
		name   string
		fields map[string]string
		file   string
	}

	valid := map[string]string{"account_id": uuid.NewString(), "condominium_id": uuid.NewString()}

	tests := []testCase{
		{name: "MissingAccount", fields: map[string]string{"condominium_id": uuid.NewString()}, file: "x"},
		{name: "MissingCondominium", fields: map[string]string{"account_id": uuid.NewString()}, file: "x"},
		{name: "BadFormat", fields: map[string]string{"account_id": uuid.NewString(), "condominium_id": uuid.NewString(), "format": "xlsx"}, file: "x"},
		{name: "MissingFile", fields: valid},
		{name: "NoHeader", fields: valid, file: "foo;bar\n1;2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			body, contentType := multipartBody(t, tt.fields, tt.file)
			req := httptest.NewRequest(http.MethodPost, "/statements/import", body)
			req.Header.Set("Content-Type", contentType)

			rec := f.do(t, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, f.svc.imported.Rows, "nothing reaches the import service")
		})
	}
}

func TestHandler_Reconcile(t *testing.T) {
	f := newFixture()
	lineID, txID := uuid.New(), uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/statements/"+lineID.String()+"/reconcile",
		strings.NewReader(`{"transaction_id":"`+txID.String()+`","notes":"conferido"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.ActorHeader, "sindico-1")

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, reconciliation.ManualParams{
		LineID:        lineID,
		TransactionID: txID,
		Actor:         "sindico-1",
		Notes:         "conferido",
	}, f.reconciler.manual)

	body := decode(t, rec)
	assert.Equal(t, true, body["conciliado"])
	match, ok := body["conciliacao"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "manual", match["metodo"])
}

func TestHandler_Reconcile_Errors(t *testing.T) {
	type testCase struct {
		name     string
		body     string
		err      error
		wantCode int
	}

	txID := uuid.NewString()

	tests := []testCase{
		{name: "MissingTransaction", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "MissingActor", body: `{"transaction_id":"` + txID + `"}`, err: reconciliation.ErrValidation, wantCode: http.StatusBadRequest},
		{name: "LineNotFound", body: `{"transaction_id":"` + txID + `"}`, err: statement.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "Conflict", body: `{"transaction_id":"` + txID + `"}`, err: reconciliation.ErrTransactionTaken, wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.reconciler.err = tt.err

			req := httptest.NewRequest(http.MethodPost, "/statements/"+uuid.NewString()+"/reconcile", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := f.do(t, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHandler_Unreconcile(t *testing.T) {
	f := newFixture()
	lineID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/statements/"+lineID.String()+"/unreconcile", nil)
	req.Header.Set(auth.ActorHeader, "sindico-1")

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, lineID, f.reconciler.unreconcile.LineID)
	assert.Equal(t, "sindico-1", f.reconciler.unreconcile.Actor)

	req = httptest.NewRequest(http.MethodPost, "/statements/"+lineID.String()+"/unreconcile", strings.NewReader(`{"notes":"lançamento errado"}`))
	req.Header.Set("Content-Type", "application/json")

	rec = f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lançamento errado", f.reconciler.unreconcile.Notes)
}

func TestHandler_SetCategory(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.svc.lines[id] = &statement.Line{ID: id, Category: "outros"}

	req := httptest.NewRequest(http.MethodPatch, "/statements/"+id.String()+"/category", strings.NewReader(`{"category":"agua"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "agua", decode(t, rec)["categoria"])

	req = httptest.NewRequest(http.MethodPatch, "/statements/"+id.String()+"/category", strings.NewReader(`{"category":""}`))
	req.Header.Set("Content-Type", "application/json")

	rec = f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
