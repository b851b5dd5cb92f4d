package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	repo "storefront/internal/repository"
)

// OrderUsecase は注文確定（カート→注文）の全手順を1トランザクションで行う。
type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type OrderLineInput struct {
	ProductID int64
	Quantity  int64
}

type PlaceOrderInput struct {
	Items           []OrderLineInput
	ShippingAddress string
	ShippingFee     int64
	Discount        int64
	PromoCode       string
	IdempotencyKey  string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	Subtotal        int64             `json:"subtotal"`
	ShippingFee     int64             `json:"shipping_fee"`
	Discount        int64             `json:"discount"`
	PromoCode       string            `json:"promo_code,omitempty"`
	GrandTotal      int64             `json:"grand_total"`
	Status          string            `json:"status"`
	ShippingAddress string            `json:"shipping_address"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemOutput `json:"items"`
}

// PlaceOrder は注文を確定する。
// 在庫確認→価格計算→注文作成→明細作成→在庫減算→カート全消し を
// 1つのトランザクションで行い、途中で失敗したら全部なかったことにする。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//入力チェックはトランザクションを開く前に済ませる
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity < 1 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}
	address := strings.TrimSpace(in.ShippingAddress)
	if address == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping_address required")
	}
	if in.ShippingFee < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_fee")
	}
	if in.Discount < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid discount")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// キーが来ていれば、同じキーは同じ結果を返す
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(existing, items)
				return nil
			}
		}

		// クライアントが送ってきた順に在庫を確保する。
		// Reserveは商品行をFOR UPDATEで掴むので、同じ商品を取り合う
		// 注文同士はここで直列化される。価格もこの読みを正とする。
		lines := make([]pricing.Line, 0, len(in.Items))
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		now := time.Now()

		for _, it := range in.Items {
			p, err := r.Inventory().Reserve(ctx, it.ProductID, it.Quantity)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, fmt.Sprintf("product %d not found", it.ProductID))
			}
			if errors.Is(err, repo.ErrInsufficientStock) {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d out of stock", it.ProductID))
			}
			if err != nil {
				if isLockTimeout(err) {
					return NewHTTPError(http.StatusServiceUnavailable, "inventory busy, please retry")
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			lines = append(lines, pricing.Line{UnitPrice: p.Price, Quantity: it.Quantity})
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           it.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            it.Quantity,
				CreatedAt:           now,
			})
		}

		//合計はここで一度だけ計算して凍結する
		quote := pricing.Calculate(lines, in.ShippingFee, in.Discount)

		order := model.Order{
			UserID:          userID,
			Subtotal:        quote.Subtotal,
			ShippingFee:     quote.ShippingFee,
			Discount:        quote.Discount,
			PromoCode:       strings.TrimSpace(in.PromoCode),
			GrandTotal:      quote.GrandTotal,
			Status:          model.OrderStatusPending,
			ShippingAddress: address,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			// 同じキーが同時に入った場合はもう一度検索して同じ結果を返す
			if key != "" {
				ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
				if err2 == nil && found2 {
					items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
					if err3 != nil {
						return NewHTTPError(http.StatusInternalServerError, "db error")
					}
					out = toOrderOutput(ex2, items2)
					return nil
				}
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫減算。Reserveのロック下なので不足はないはずだが、
		//条件付きUPDATEが0行なら注文ごと失敗させる。
		for _, it := range in.Items {
			if err := r.Inventory().CommitDecrement(ctx, it.ProductID, it.Quantity); err != nil {
				if errors.Is(err, repo.ErrInsufficientStock) {
					return NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d out of stock", it.ProductID))
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		//カートは注文対象以外も含めて全消しする
		if err := r.Carts().ClearByUserID(ctx, userID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created := order
		created.ID = orderID
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		if isLockTimeout(err) {
			return OrderOutput{}, NewHTTPError(http.StatusServiceUnavailable, "inventory busy, please retry")
		}
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		Discount:        o.Discount,
		PromoCode:       o.PromoCode,
		GrandTotal:      o.GrandTotal,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
