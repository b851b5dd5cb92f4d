package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInventoryUsecase_AdminSetStock_Validation(t *testing.T) {
	tx := new(txManagerMock)
	products := new(productRepoMock)
	uc := usecase.NewInventoryUsecase(tx, products)

	err := uc.AdminSetStock(context.Background(), 0, 1, 10, "restock")
	assertErrContains(t, err, "unauthorized")

	err = uc.AdminSetStock(context.Background(), 1, 1, -1, "restock")
	assertErrContains(t, err, "stock must be >= 0")

	err = uc.AdminSetStock(context.Background(), 1, 1, 10, "  ")
	assertErrContains(t, err, "reason required")

	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestInventoryUsecase_AdminSetStock_NotFound(t *testing.T) {
	tx := new(txManagerMock)
	products := new(productRepoMock)
	uc := usecase.NewInventoryUsecase(tx, products)

	products.On("FindByID", mock.Anything, int64(9)).Return(model.Product{}, repo.ErrNotFound)

	err := uc.AdminSetStock(context.Background(), 1, 9, 10, "restock")
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestInventoryUsecase_AdminSetStock_OK(t *testing.T) {
	inventory := new(inventoryRepoMock)
	auditLogs := new(auditLogRepoMock)
	products := new(productRepoMock)

	tx := new(txManagerMock)
	tx.Repos = &txReposMock{inventory: inventory, auditLogs: auditLogs}
	tx.On("WithinTx", mock.Anything).Return(nil)

	uc := usecase.NewInventoryUsecase(tx, products)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "A", Stock: 4}, nil)
	inventory.On("SetStock", mock.Anything, int64(1), int64(10)).Return(nil)
	inventory.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(a model.InventoryAdjustment) bool {
		return a.ProductID == 1 && a.AdminUserID == 7 && a.Delta == 6 && a.Reason == "restock"
	})).Return(nil)
	auditLogs.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateStock &&
			l.BeforeJSON == `{"stock":4}` &&
			l.AfterJSON == `{"stock":10}`
	})).Return(nil)

	err := uc.AdminSetStock(context.Background(), 7, 1, 10, "restock")
	require.NoError(t, err)

	inventory.AssertExpectations(t)
	auditLogs.AssertExpectations(t)
}
