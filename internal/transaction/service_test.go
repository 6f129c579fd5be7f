package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

func TestService_Create(t *testing.T) {
	condoID := uuid.New()

	type args struct {
		params transaction.CreateParams
	}

	type testCase struct {
		name       string
		args       args
		setupMock  func(m *transaction.MockRepository)
		wantStatus transaction.Status
		wantErr    error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{
				params: transaction.CreateParams{
					CondominiumID: condoID,
					Type:          transaction.TypeIncome,
					Status:        transaction.StatusApproved,
					Amount:        45000,
					DueDate:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
					PaymentID:     "ABC123",
					Description:   "Taxa condominio Joao Silva",
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()
						return nil
					})
			},
			wantStatus: transaction.StatusApproved,
		},
		{
			name: "DefaultsToPending",
			args: args{
				params: transaction.CreateParams{
					CondominiumID: condoID,
					Amount:        1000,
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						tx.ID = uuid.New()
						return nil
					})
			},
			wantStatus: transaction.StatusPending,
		},
		{
			name: "MissingCondominium",
			args: args{
				params: transaction.CreateParams{Amount: 500},
			},
			wantErr: transaction.ErrValidation,
		},
		{
			name: "NonPositiveAmount",
			args: args{
				params: transaction.CreateParams{CondominiumID: condoID},
			},
			wantErr: transaction.ErrValidation,
		},
		{
			name: "RepoError",
			args: args{
				params: transaction.CreateParams{CondominiumID: condoID, Amount: 500},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, transaction.ErrValidation) {
					assert.ErrorIs(t, err, transaction.ErrValidation)
				}

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.False(t, got.Reconciled())
		})
	}
}

func TestService_List(t *testing.T) {
	condoID := uuid.New()
	filter := transaction.ListFilter{CondominiumID: &condoID}

	type testCase struct {
		name      string
		setupMock func(m *transaction.MockRepository)
		wantLen   int
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), filter).
					Return([]*transaction.Transaction{
						{ID: uuid.New()},
						{ID: uuid.New()},
					}, nil)
			},
			wantLen: 2,
		},
		{
			name: "Error",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), filter).
					Return(nil, errors.New("list error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := transaction.NewService(repo)
			got, err := svc.List(context.Background(), filter)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().GetTransaction(gomock.Any(), id).Return(nil, transaction.ErrNotFound)

	svc := transaction.NewService(repo)
	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestStatus_Reconcilable(t *testing.T) {
	assert.True(t, transaction.StatusPending.Reconcilable())
	assert.True(t, transaction.StatusApproved.Reconcilable())
	assert.False(t, transaction.StatusPaid.Reconcilable())
	assert.False(t, transaction.StatusCancelled.Reconcilable())
}
