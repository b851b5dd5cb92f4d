package usecase_test

import (
	"context"
	"sync"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// txManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type txManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type txReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	inventory  repo.InventoryRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *txReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type orderRepoMock struct{ mock.Mock }

func (m *orderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *orderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *orderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *orderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *orderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *orderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type orderItemRepoMock struct{ mock.Mock }

func (m *orderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *orderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type cartRepoMock struct{ mock.Mock }

func (m *cartRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *cartRepoMock) UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error {
	args := m.Called(ctx, userID, productID, addQty)
	return args.Error(0)
}

func (m *cartRepoMock) RemoveProduct(ctx context.Context, userID int64, productID int64) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *cartRepoMock) ClearByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type inventoryRepoMock struct{ mock.Mock }

func (m *inventoryRepoMock) Reserve(ctx context.Context, productID int64, qty int64) (model.Product, error) {
	args := m.Called(ctx, productID, qty)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *inventoryRepoMock) CommitDecrement(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *inventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *inventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

type auditLogRepoMock struct{ mock.Mock }

func (m *auditLogRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

type productRepoMock struct{ mock.Mock }

func (m *productRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

// =====================
// インメモリのトランザクション実装。
// 1トランザクション=1クリティカルセクションとして直列化し、
// fnが成功したときだけステージした書き込みを反映する。
// 同時注文の直列化と all-or-nothing の検証に使う。
// =====================

type memStore struct {
	mu          sync.Mutex
	products    map[int64]model.Product
	orders      map[int64]model.Order
	orderItems  map[int64][]model.OrderItem
	carts       map[int64][]model.CartItem
	nextOrderID int64
}

func newMemStore() *memStore {
	return &memStore{
		products:    map[int64]model.Product{},
		orders:      map[int64]model.Order{},
		orderItems:  map[int64][]model.OrderItem{},
		carts:       map[int64][]model.CartItem{},
		nextOrderID: 1,
	}
}

type memTxManager struct {
	store *memStore
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	tx := &memTx{store: m.store, stockDelta: map[int64]int64{}}
	if err := fn(tx); err != nil {
		// ロールバック＝ステージ破棄
		return err
	}
	tx.commit()
	return nil
}

type stagedOrder struct {
	id    int64
	order model.Order
	items []model.OrderItem
}

type memTx struct {
	store        *memStore
	stockDelta   map[int64]int64
	staged       []stagedOrder
	clearedUsers []int64
}

func (t *memTx) Orders() repo.OrderRepository         { return (*memOrderRepo)(t) }
func (t *memTx) OrderItems() repo.OrderItemRepository { return (*memOrderItemRepo)(t) }
func (t *memTx) Carts() repo.CartRepository           { return (*memCartRepo)(t) }
func (t *memTx) Inventory() repo.InventoryRepository  { return (*memInventoryRepo)(t) }
func (t *memTx) AuditLogs() repo.AuditLogRepository   { return (*memAuditRepo)(t) }

func (t *memTx) commit() {
	for id, delta := range t.stockDelta {
		p := t.store.products[id]
		p.Stock += delta
		t.store.products[id] = p
	}
	for _, so := range t.staged {
		t.store.orders[so.id] = so.order
		t.store.orderItems[so.id] = so.items
	}
	for _, uid := range t.clearedUsers {
		delete(t.store.carts, uid)
	}
}

type memInventoryRepo memTx

func (r *memInventoryRepo) Reserve(ctx context.Context, productID int64, qty int64) (model.Product, error) {
	p, ok := r.store.products[productID]
	if !ok || !p.IsActive {
		return model.Product{}, repo.ErrNotFound
	}
	if p.Stock+r.stockDelta[productID] < qty {
		return model.Product{}, repo.ErrInsufficientStock
	}
	return p, nil
}

func (r *memInventoryRepo) CommitDecrement(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.store.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	if p.Stock+r.stockDelta[productID] < qty {
		return repo.ErrInsufficientStock
	}
	r.stockDelta[productID] -= qty
	return nil
}

func (r *memInventoryRepo) SetStock(ctx context.Context, productID int64, newStock int64) error {
	p, ok := r.store.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	r.stockDelta[productID] = newStock - p.Stock
	return nil
}

func (r *memInventoryRepo) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	return nil
}

type memOrderRepo memTx

func (r *memOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.store.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.store.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	id := r.store.nextOrderID
	r.store.nextOrderID++
	order.ID = id
	r.staged = append(r.staged, stagedOrder{id: id, order: order})
	return id, nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := r.store.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	r.store.orders[orderID] = o
	return nil
}

func (r *memOrderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range r.store.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r *memOrderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.store.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

type memOrderItemRepo memTx

func (r *memOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
	}
	for i := range r.staged {
		if r.staged[i].id == orderID {
			r.staged[i].items = items
			return nil
		}
	}
	r.store.orderItems[orderID] = items
	return nil
}

func (r *memOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return r.store.orderItems[orderID], nil
}

type memCartRepo memTx

func (r *memCartRepo) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return r.store.carts[userID], nil
}

func (r *memCartRepo) UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error {
	items := r.store.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += addQty
			r.store.carts[userID] = items
			return nil
		}
	}
	r.store.carts[userID] = append(items, model.CartItem{UserID: userID, ProductID: productID, Quantity: addQty})
	return nil
}

func (r *memCartRepo) RemoveProduct(ctx context.Context, userID int64, productID int64) error {
	items := r.store.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			r.store.carts[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *memCartRepo) ClearByUserID(ctx context.Context, userID int64) error {
	r.clearedUsers = append(r.clearedUsers, userID)
	return nil
}

type memAuditRepo memTx

func (r *memAuditRepo) Create(ctx context.Context, log model.AuditLog) error {
	return nil
}
