package repository

import (
	"storefront/internal/domain/model"
	"context"
)

// InventoryRepository は在庫台帳。在庫の真実はここだけが持つ。
// Reserve と CommitDecrement は必ず同一トランザクション内で呼ぶこと。
type InventoryRepository interface {
	// 商品行を排他ロックして読む（FOR UPDATE）。
	// 存在しない・非公開なら ErrNotFound、在庫不足なら ErrInsufficientStock。
	// 返した行のロックはトランザクション終了まで維持される。
	Reserve(ctx context.Context, productID int64, qty int64) (model.Product, error)

	// stock -= qty を条件付きUPDATEで適用（stock >= qty のときだけ）。
	CommitDecrement(ctx context.Context, productID int64, qty int64) error

	// 在庫の現在値を設定（管理者の在庫調整のみが使う）
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
