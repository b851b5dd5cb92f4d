package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 商品の読み取りだけを約束。在庫の変更は InventoryRepository 経由のみ。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
