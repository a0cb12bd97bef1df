package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sewing-flow/internal/storage"
)

type MockChainStorage struct {
	mock.Mock
}

func (m *MockChainStorage) BeginChainTx(ctx context.Context) (storage.ChainTx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(storage.ChainTx), args.Error(1)
}

func (m *MockChainStorage) GetOrderOperations(ctx context.Context, orderID int64) ([]*storage.OrderOperation, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.OrderOperation), args.Error(1)
}

// MockChainTx реализует storage.ChainTx для тестов
type MockChainTx struct {
	mock.Mock
}

func (m *MockChainTx) GetOperation(ctx context.Context, id int64) (*storage.OrderOperation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.OrderOperation), args.Error(1)
}

func (m *MockChainTx) Siblings(ctx context.Context, orderID int64) ([]*storage.OrderOperation, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.OrderOperation), args.Error(1)
}

func (m *MockChainTx) UpdateStatus(ctx context.Context, id int64, status storage.OpStatus, actualTotal int) error {
	args := m.Called(ctx, id, status, actualTotal)
	return args.Error(0)
}

func (m *MockChainTx) UpdateVariantActual(ctx context.Context, variantID int64, actualQty int) error {
	args := m.Called(ctx, variantID, actualQty)
	return args.Error(0)
}

func (m *MockChainTx) Commit() error {
	return m.Called().Error(0)
}

func (m *MockChainTx) Rollback() error {
	return m.Called().Error(0)
}

func op(id int64, cat storage.Category, status storage.OpStatus) *storage.OrderOperation {
	return &storage.OrderOperation{
		ID:         id,
		OrderID:    1,
		Category:   cat,
		Status:     status,
		PlannedQty: 10,
		ActualQty:  10,
	}
}

var admin = storage.Principal{Role: storage.RoleAdmin}

// Тест: пошив нельзя закрыть, пока раскрой не завершён
func TestTransitionStatus_SewingBlockedByCutting(t *testing.T) {
	mockStorage := new(MockChainStorage)
	mockTx := new(MockChainTx)

	sewing := op(2, storage.CategorySewing, storage.OpInProgress)

	// 1. Транзакция открывается, операция и сёстры читаются
	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(2)).Return(sewing, nil)
	mockTx.On("Siblings", mock.Anything, int64(1)).Return([]*storage.OrderOperation{
		op(1, storage.CategoryCutting, storage.OpInProgress), // раскрой не закрыт
		sewing,
	}, nil)
	mockTx.On("Rollback").Return(nil)

	service := NewService(mockStorage)

	// 2. Попытка закрыть пошив
	_, err := service.TransitionStatus(context.Background(), admin, 2, storage.OpDone)

	// 3. Ошибка зависимости, записи не было
	var chainErr *storage.ChainDependencyError
	assert.True(t, errors.As(err, &chainErr))
	assert.Equal(t, storage.CategoryCutting, chainErr.MissingCategory)

	mockTx.AssertNotCalled(t, "UpdateStatus")
	mockTx.AssertNotCalled(t, "Commit")
	mockTx.AssertCalled(t, "Rollback")
}

// Тест: успешное закрытие раскроя
func TestTransitionStatus_Success(t *testing.T) {
	mockStorage := new(MockChainStorage)
	mockTx := new(MockChainTx)

	cutting := op(1, storage.CategoryCutting, storage.OpInProgress)

	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(1)).Return(cutting, nil)
	mockTx.On("Siblings", mock.Anything, int64(1)).Return([]*storage.OrderOperation{cutting}, nil)
	mockTx.On("UpdateStatus", mock.Anything, int64(1), storage.OpDone, 10).Return(nil)
	mockTx.On("Commit").Return(nil)
	mockTx.On("Rollback").Return(nil) // defer после коммита, результат игнорируется

	service := NewService(mockStorage)

	updated, err := service.TransitionStatus(context.Background(), admin, 1, storage.OpDone)

	assert.NoError(t, err)
	assert.Equal(t, storage.OpDone, updated.Status)
	mockTx.AssertExpectations(t)
}

// Тест: ворота закрытия по вариантам — расхождение блокирует,
// после исправления факта операция закрывается
func TestTransitionStatus_CompletionGate(t *testing.T) {
	withVariants := func(secondActual int) *storage.OrderOperation {
		operation := op(1, storage.CategoryCutting, storage.OpInProgress)
		operation.Variants = []storage.Variant{
			{ID: 11, Color: "чёрный", Size: "48", PlannedQty: 10, ActualQty: 10},
			{ID: 12, Color: "синий", Size: "50", PlannedQty: 5, ActualQty: secondActual},
		}
		return operation
	}

	// 1. Факт второго варианта 4 из 5 — закрытие отклоняется
	mockStorage := new(MockChainStorage)
	mockTx := new(MockChainTx)
	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(1)).Return(withVariants(4), nil)
	mockTx.On("Siblings", mock.Anything, int64(1)).Return([]*storage.OrderOperation{withVariants(4)}, nil)
	mockTx.On("Rollback").Return(nil)

	service := NewService(mockStorage)
	_, err := service.TransitionStatus(context.Background(), admin, 1, storage.OpDone)

	var mismatchErr *storage.CompletionMismatchError
	assert.True(t, errors.As(err, &mismatchErr))
	assert.Len(t, mismatchErr.Mismatches, 1)
	assert.Equal(t, "синий", mismatchErr.Mismatches[0].Color)
	assert.Equal(t, 5, mismatchErr.Mismatches[0].PlannedQty)
	assert.Equal(t, 4, mismatchErr.Mismatches[0].ActualQty)
	mockTx.AssertNotCalled(t, "UpdateStatus")

	// 2. Факт исправлен на 5 — операция закрывается, итог 15
	mockStorage = new(MockChainStorage)
	mockTx = new(MockChainTx)
	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(1)).Return(withVariants(5), nil)
	mockTx.On("Siblings", mock.Anything, int64(1)).Return([]*storage.OrderOperation{withVariants(5)}, nil)
	mockTx.On("UpdateStatus", mock.Anything, int64(1), storage.OpDone, 15).Return(nil)
	mockTx.On("Commit").Return(nil)
	mockTx.On("Rollback").Return(nil)

	service = NewService(mockStorage)
	updated, err := service.TransitionStatus(context.Background(), admin, 1, storage.OpDone)

	assert.NoError(t, err)
	assert.Equal(t, 15, updated.ActualQty)
	mockTx.AssertExpectations(t)
}

// Тест: технолог не трогает чужой этаж
func TestTransitionStatus_TechnologistWrongFloor(t *testing.T) {
	mockStorage := new(MockChainStorage)
	mockTx := new(MockChainTx)

	operation := op(1, storage.CategoryCutting, storage.OpPending)
	operation.FloorID = 3

	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(1)).Return(operation, nil)
	mockTx.On("Rollback").Return(nil)

	service := NewService(mockStorage)
	principal := storage.Principal{Role: storage.RoleTechnologist, FloorID: 2}

	_, err := service.TransitionStatus(context.Background(), principal, 1, storage.OpInProgress)

	var authErr *storage.AuthorizationError
	assert.True(t, errors.As(err, &authErr))
	mockTx.AssertNotCalled(t, "UpdateStatus")
}

// Тест: откат из done доступен только руководителю
func TestTransitionStatus_RollbackElevatedOnly(t *testing.T) {
	newMocks := func() (*MockChainStorage, *MockChainTx) {
		mockStorage := new(MockChainStorage)
		mockTx := new(MockChainTx)
		mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
		mockTx.On("GetOperation", mock.Anything, int64(1)).
			Return(op(1, storage.CategoryCutting, storage.OpDone), nil)
		mockTx.On("Rollback").Return(nil)
		return mockStorage, mockTx
	}

	// Швея — отказ
	mockStorage, mockTx := newMocks()
	service := NewService(mockStorage)
	_, err := service.TransitionStatus(context.Background(), storage.Principal{Role: storage.RoleSewer}, 1, storage.OpInProgress)

	var authErr *storage.AuthorizationError
	assert.True(t, errors.As(err, &authErr))
	mockTx.AssertNotCalled(t, "UpdateStatus")

	// Менеджер — откат проходит
	mockStorage, mockTx = newMocks()
	mockTx.On("Siblings", mock.Anything, int64(1)).
		Return([]*storage.OrderOperation{op(1, storage.CategoryCutting, storage.OpDone)}, nil)
	mockTx.On("UpdateStatus", mock.Anything, int64(1), storage.OpInProgress, 10).Return(nil)
	mockTx.On("Commit").Return(nil)

	service = NewService(mockStorage)
	updated, err := service.TransitionStatus(context.Background(), storage.Principal{Role: storage.RoleManager}, 1, storage.OpInProgress)

	assert.NoError(t, err)
	assert.Equal(t, storage.OpInProgress, updated.Status)
}

func TestCheckTransition(t *testing.T) {
	sewer := storage.Principal{Role: storage.RoleSewer}

	tests := []struct {
		name      string
		principal storage.Principal
		current   storage.OpStatus
		target    storage.OpStatus
		wantErr   bool
	}{
		{"взять в работу", sewer, storage.OpPending, storage.OpInProgress, false},
		{"завершить из работы", sewer, storage.OpInProgress, storage.OpDone, false},
		{"нельзя завершить из ожидания", sewer, storage.OpPending, storage.OpDone, true},
		{"откат швеёй запрещён", sewer, storage.OpDone, storage.OpInProgress, true},
		{"откат руководителем разрешён", admin, storage.OpDone, storage.OpInProgress, false},
		{"возврат в ожидание запрещён обычной роли", sewer, storage.OpInProgress, storage.OpPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTransition(tt.principal, tt.current, tt.target)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// Тест: пачка вариантов проверяется целиком до первой записи
func TestUpdateVariants_BatchValidation(t *testing.T) {
	mockStorage := new(MockChainStorage)
	mockTx := new(MockChainTx)

	operation := op(1, storage.CategoryCutting, storage.OpInProgress)
	operation.Variants = []storage.Variant{
		{ID: 11, Color: "чёрный", Size: "48", PlannedQty: 10},
		{ID: 12, Color: "синий", Size: "50", PlannedQty: 5},
	}

	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(1)).Return(operation, nil)
	mockTx.On("Rollback").Return(nil)

	service := NewService(mockStorage)

	// Первая строка корректна, вторая превышает план — не пишется ничего
	err := service.UpdateVariants(context.Background(), admin, 1, []VariantUpdate{
		{VariantID: 11, ActualQty: 10},
		{VariantID: 12, ActualQty: 6},
	})

	var vErr *storage.ValidationError
	assert.True(t, errors.As(err, &vErr))
	mockTx.AssertNotCalled(t, "UpdateVariantActual")
	mockTx.AssertNotCalled(t, "Commit")

	// Неизвестный вариант — 404
	err = service.UpdateVariants(context.Background(), admin, 1, []VariantUpdate{
		{VariantID: 99, ActualQty: 1},
	})

	var nfErr *storage.NotFoundError
	assert.True(t, errors.As(err, &nfErr))
}

func TestUpdateVariants_Success(t *testing.T) {
	mockStorage := new(MockChainStorage)
	mockTx := new(MockChainTx)

	operation := op(1, storage.CategoryCutting, storage.OpInProgress)
	operation.Variants = []storage.Variant{
		{ID: 11, Color: "чёрный", Size: "48", PlannedQty: 10},
		{ID: 12, Color: "синий", Size: "50", PlannedQty: 5},
	}

	mockStorage.On("BeginChainTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("GetOperation", mock.Anything, int64(1)).Return(operation, nil)
	mockTx.On("UpdateVariantActual", mock.Anything, int64(11), 10).Return(nil)
	mockTx.On("UpdateVariantActual", mock.Anything, int64(12), 5).Return(nil)
	mockTx.On("Commit").Return(nil)
	mockTx.On("Rollback").Return(nil)

	service := NewService(mockStorage)

	err := service.UpdateVariants(context.Background(), admin, 1, []VariantUpdate{
		{VariantID: 11, ActualQty: 10},
		{VariantID: 12, ActualQty: 5},
	})

	assert.NoError(t, err)
	mockTx.AssertExpectations(t)
}

// Тест: read-only расчёт готовности использует те же предикаты, что и мутация
func TestEvaluateStates(t *testing.T) {
	cutting := op(1, storage.CategoryCutting, storage.OpDone)

	sewing := op(2, storage.CategorySewing, storage.OpInProgress)
	sewing.ActualQty = 7 // факт меньше плана

	finish := op(3, storage.CategoryFinish, storage.OpPending)

	states := EvaluateStates([]*storage.OrderOperation{cutting, sewing, finish})

	assert.Len(t, states, 3)

	// Закрытая операция неподвижна
	assert.False(t, states[0].CanStart)
	assert.False(t, states[0].CanComplete)

	// Пошив в работе, но факт не добран — закрывать рано
	assert.False(t, states[1].CanComplete)
	assert.NotEmpty(t, states[1].BlockReason)

	// Отделка ждёт закрытия пошива
	assert.False(t, states[2].CanStart)
	assert.NotEmpty(t, states[2].BlockReason)

	// Пошив добрал факт — отделка всё ещё заблокирована, пошив можно закрыть
	sewing.ActualQty = 10
	states = EvaluateStates([]*storage.OrderOperation{cutting, sewing, finish})
	assert.True(t, states[1].CanComplete)
	assert.False(t, states[2].CanStart)

	// Пошив закрыт — отделку можно начинать
	sewing.Status = storage.OpDone
	states = EvaluateStates([]*storage.OrderOperation{cutting, sewing, finish})
	assert.True(t, states[2].CanStart)
	assert.Empty(t, states[2].BlockReason)
}

func TestOrderStates(t *testing.T) {
	mockStorage := new(MockChainStorage)
	mockStorage.On("GetOrderOperations", mock.Anything, int64(1)).
		Return([]*storage.OrderOperation{op(1, storage.CategoryCutting, storage.OpPending)}, nil)

	service := NewService(mockStorage)

	states, err := service.OrderStates(context.Background(), 1)

	assert.NoError(t, err)
	assert.Len(t, states, 1)
	assert.True(t, states[0].CanStart)
	mockStorage.AssertExpectations(t)
}
