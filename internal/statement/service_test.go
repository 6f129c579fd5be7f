package statement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	repo        *statement.MockRepository
	itx         *statement.MockImportTx
	categorizer *statement.MockCategorizer
	hook        *statement.MockIngestHook
	invalidator *statement.MockInvalidator
	svc         *statement.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := fixture{
		repo:        statement.NewMockRepository(ctrl),
		itx:         statement.NewMockImportTx(ctrl),
		categorizer: statement.NewMockCategorizer(ctrl),
		hook:        statement.NewMockIngestHook(ctrl),
		invalidator: statement.NewMockInvalidator(ctrl),
	}

	f.svc = statement.NewService(f.repo, f.categorizer,
		statement.WithIngestHook(f.hook),
		statement.WithInvalidator(f.invalidator),
		statement.WithClock(func() time.Time { return date(2024, 3, 15) }),
	)

	return f
}

func TestService_Import_NewLines(t *testing.T) {
	f := newFixture(t)
	accountID, condoID := uuid.New(), uuid.New()

	rows := []statement.ParsedRow{
		{Number: 2, Params: statement.CreateParams{Document: "D1", Date: date(2024, 3, 10), Amount: 45000, History: "PIX RECEBIDO JOAO SILVA"}},
		{Number: 3, Params: statement.CreateParams{Document: "D2", Date: date(2024, 3, 11), Amount: -12000, History: "PAGAMENTO BOLETO AGUA"}},
	}

	f.categorizer.EXPECT().Categorize(gomock.Any(), "PIX RECEBIDO JOAO SILVA").Return("taxa_condominial", nil)
	f.categorizer.EXPECT().Categorize(gomock.Any(), "PAGAMENTO BOLETO AGUA").Return("agua", nil)
	f.repo.EXPECT().BeginImport(gomock.Any(), accountID).Return(f.itx, nil)
	f.itx.EXPECT().ExistingDocuments(gomock.Any(), accountID, []string{"D1", "D2"}).Return(map[string]bool{}, nil)
	f.itx.EXPECT().CreateLines(gomock.Any(), gomock.Len(2)).DoAndReturn(func(_ context.Context, lines []*statement.Line) error {
		for _, l := range lines {
			l.ID = uuid.New()
		}
		return nil
	})
	f.itx.EXPECT().Commit().Return(nil)
	f.itx.EXPECT().Rollback().Return(nil)
	f.invalidator.EXPECT().Invalidate(gomock.Any(), condoID).Return(nil)
	f.hook.EXPECT().RunIngestPass(gomock.Any(), condoID, accountID).Return(nil)

	result, err := f.svc.Import(context.Background(), statement.ImportParams{
		AccountID:     accountID,
		CondominiumID: condoID,
		Rows:          rows,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Inserted)
	assert.Zero(t, result.Duplicate)
	assert.Zero(t, result.Errored)
	require.Len(t, result.Lines, 2)

	assert.Equal(t, statement.ClassCredit, result.Lines[0].Class)
	assert.Equal(t, "taxa_condominial", result.Lines[0].Category)
	require.NotNil(t, result.Lines[0].Pix)
	assert.Equal(t, statement.ClassDebit, result.Lines[1].Class)
	assert.Equal(t, int64(12000), result.Lines[1].Amount)
	require.NotNil(t, result.Lines[1].Boleto)

	for _, d := range result.Detail {
		assert.Equal(t, statement.RowImported, d.Status)
		assert.NotNil(t, d.LineID)
	}
}

func TestService_Import_DuplicatesAndErrors(t *testing.T) {
	f := newFixture(t)
	accountID, condoID := uuid.New(), uuid.New()

	rows := []statement.ParsedRow{
		{Number: 2, Params: statement.CreateParams{Document: "OLD", Date: date(2024, 3, 10), Amount: 100, History: "a"}},
		{Number: 3, Params: statement.CreateParams{Document: "NEW", Date: date(2024, 3, 10), Amount: 200, History: "b"}},
		{Number: 4, Params: statement.CreateParams{Document: "NEW", Date: date(2024, 3, 10), Amount: 200, History: "b"}},
		{Number: 5, Err: errors.New("invalid date \"31/02/2024\"")},
		{Number: 6, Params: statement.CreateParams{Document: "ZERO", Date: date(2024, 3, 10), History: "c"}},
	}

	f.categorizer.EXPECT().Categorize(gomock.Any(), gomock.Any()).Return("outros", nil).Times(3)
	f.repo.EXPECT().BeginImport(gomock.Any(), accountID).Return(f.itx, nil)
	f.itx.EXPECT().ExistingDocuments(gomock.Any(), accountID, []string{"OLD", "NEW", "NEW"}).
		Return(map[string]bool{"OLD": true}, nil)
	f.itx.EXPECT().CreateLines(gomock.Any(), gomock.Len(1)).Return(nil)
	f.itx.EXPECT().Commit().Return(nil)
	f.itx.EXPECT().Rollback().Return(nil)
	f.invalidator.EXPECT().Invalidate(gomock.Any(), condoID).Return(nil)
	f.hook.EXPECT().RunIngestPass(gomock.Any(), condoID, accountID).Return(errors.New("boom"))

	result, err := f.svc.Import(context.Background(), statement.ImportParams{
		AccountID:     accountID,
		CondominiumID: condoID,
		Rows:          rows,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, result.Duplicate)
	assert.Equal(t, 2, result.Errored)
	assert.Equal(t, result.Total, result.Inserted+result.Duplicate+result.Errored)

	statuses := make([]statement.RowStatus, len(result.Detail))
	for i, d := range result.Detail {
		statuses[i] = d.Status
	}

	assert.Equal(t, []statement.RowStatus{
		statement.RowDuplicate,
		statement.RowImported,
		statement.RowDuplicate,
		statement.RowError,
		statement.RowError,
	}, statuses)
	assert.Contains(t, result.Detail[3].Error, "invalid date")
}

func TestService_Import_IdenticalRowsWithoutDocument(t *testing.T) {
	f := newFixture(t)
	accountID, condoID := uuid.New(), uuid.New()

	movement := statement.CreateParams{Date: date(2024, 3, 10), Amount: 45000, History: "PIX RECEBIDO"}
	rows := []statement.ParsedRow{
		{Number: 2, Params: movement},
		{Number: 3, Params: movement},
	}

	first := statement.SyntheticDocument(date(2024, 3, 10), 45000, "PIX RECEBIDO", 0)
	second := statement.SyntheticDocument(date(2024, 3, 10), 45000, "PIX RECEBIDO", 1)
	require.NotEqual(t, first, second)

	f.categorizer.EXPECT().Categorize(gomock.Any(), "PIX RECEBIDO").Return("", nil).Times(2)
	f.repo.EXPECT().BeginImport(gomock.Any(), accountID).Return(f.itx, nil)
	f.itx.EXPECT().ExistingDocuments(gomock.Any(), accountID, []string{first, second}).Return(map[string]bool{}, nil)
	f.itx.EXPECT().CreateLines(gomock.Any(), gomock.Len(2)).Return(nil)
	f.itx.EXPECT().Commit().Return(nil)
	f.itx.EXPECT().Rollback().Return(nil)
	f.invalidator.EXPECT().Invalidate(gomock.Any(), condoID).Return(nil)
	f.hook.EXPECT().RunIngestPass(gomock.Any(), condoID, accountID).Return(nil)

	result, err := f.svc.Import(context.Background(), statement.ImportParams{
		AccountID:     accountID,
		CondominiumID: condoID,
		Rows:          rows,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Inserted)
	assert.Zero(t, result.Duplicate)
}

func TestService_Import_ReimportWithoutDocumentDeduplicates(t *testing.T) {
	f := newFixture(t)
	accountID, condoID := uuid.New(), uuid.New()

	movement := statement.CreateParams{Date: date(2024, 3, 10), Amount: -990, History: "TARIFA"}
	rows := []statement.ParsedRow{
		{Number: 2, Params: movement},
		{Number: 3, Params: movement},
	}

	first := statement.SyntheticDocument(date(2024, 3, 10), -990, "TARIFA", 0)
	second := statement.SyntheticDocument(date(2024, 3, 10), -990, "TARIFA", 1)

	f.categorizer.EXPECT().Categorize(gomock.Any(), "TARIFA").Return("", nil).Times(2)
	f.repo.EXPECT().BeginImport(gomock.Any(), accountID).Return(f.itx, nil)
	f.itx.EXPECT().ExistingDocuments(gomock.Any(), accountID, []string{first, second}).
		Return(map[string]bool{first: true, second: true}, nil)
	f.itx.EXPECT().Rollback().Return(nil)

	result, err := f.svc.Import(context.Background(), statement.ImportParams{
		AccountID:     accountID,
		CondominiumID: condoID,
		Rows:          rows,
	})
	require.NoError(t, err)

	assert.Zero(t, result.Inserted)
	assert.Equal(t, 2, result.Duplicate)
}

func TestService_Import_AllDuplicatesSkipsHook(t *testing.T) {
	f := newFixture(t)
	accountID, condoID := uuid.New(), uuid.New()

	rows := []statement.ParsedRow{
		{Number: 2, Params: statement.CreateParams{Document: "D1", Date: date(2024, 3, 10), Amount: 100, History: "x"}},
	}

	f.categorizer.EXPECT().Categorize(gomock.Any(), "x").Return("", nil)
	f.repo.EXPECT().BeginImport(gomock.Any(), accountID).Return(f.itx, nil)
	f.itx.EXPECT().ExistingDocuments(gomock.Any(), accountID, []string{"D1"}).Return(map[string]bool{"D1": true}, nil)
	f.itx.EXPECT().Rollback().Return(nil)

	result, err := f.svc.Import(context.Background(), statement.ImportParams{
		AccountID:     accountID,
		CondominiumID: condoID,
		Rows:          rows,
	})
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Equal(t, result.Total, result.Duplicate)
}

func TestService_Import_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), statement.ImportParams{AccountID: uuid.New()})
	assert.ErrorIs(t, err, statement.ErrValidation)
}

func TestService_Import_BeginFails(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()

	f.categorizer.EXPECT().Categorize(gomock.Any(), gomock.Any()).Return("", nil)
	f.repo.EXPECT().BeginImport(gomock.Any(), accountID).Return(nil, errors.New("db down"))

	_, err := f.svc.Import(context.Background(), statement.ImportParams{
		AccountID:     accountID,
		CondominiumID: uuid.New(),
		Rows: []statement.ParsedRow{
			{Number: 2, Params: statement.CreateParams{Document: "D1", Date: date(2024, 3, 10), Amount: 100}},
		},
	})
	assert.Error(t, err)
}

func TestService_SetCategory(t *testing.T) {
	f := newFixture(t)
	id, condoID := uuid.New(), uuid.New()

	line := &statement.Line{ID: id, CondominiumID: condoID, History: "CEMIG ENERGIA", Category: "outros"}

	f.repo.EXPECT().GetLine(gomock.Any(), id).Return(line, nil)
	f.repo.EXPECT().UpdateCategory(gomock.Any(), id, "energia", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ string, e statement.Event) error {
			assert.Equal(t, statement.EventManualCategorized, e.Type)
			assert.Equal(t, "user-1", e.Actor)
			assert.Equal(t, "outros", e.Payload["categoria_anterior"])
			return nil
		})
	f.categorizer.EXPECT().Learn(gomock.Any(), "CEMIG ENERGIA", "energia").Return(nil)
	f.invalidator.EXPECT().Invalidate(gomock.Any(), condoID).Return(nil)

	got, err := f.svc.SetCategory(context.Background(), id, " energia ", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "energia", got.Category)
	assert.Len(t, got.Events, 1)
	assert.Equal(t, "outros", line.Category, "stored line must not be mutated")
}

func TestService_SetCategory_NotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.repo.EXPECT().GetLine(gomock.Any(), id).Return(nil, statement.ErrNotFound)

	_, err := f.svc.SetCategory(context.Background(), id, "energia", "user-1")
	assert.ErrorIs(t, err, statement.ErrNotFound)
}

func TestService_List_Paging(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().
		ListLines(gomock.Any(), statement.ListFilter{Page: 1, Limit: statement.DefaultLimit}).
		Return([]*statement.Line{{ID: uuid.New()}}, 120, nil)

	page, err := f.svc.List(context.Background(), statement.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 120, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)
}
