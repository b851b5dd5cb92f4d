package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同一商品は数量加算
	UpsertByUserAndProduct(ctx context.Context, userID int64, productID int64, addQty int64) error
	RemoveProduct(ctx context.Context, userID int64, productID int64) error
	// ユーザーのカートを全消し（部分クリアはしない）
	ClearByUserID(ctx context.Context, userID int64) error
}
