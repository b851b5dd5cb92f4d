package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid は既知のステータスかどうか。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal は終端ステータス（以降の遷移なし）かどうか。
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo は s から target への遷移を許可するか。
// 遷移先は呼び出し側（管理者操作）が選ぶ。終端からの遷移だけ拒否する。
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if !target.Valid() {
		return false
	}
	return !s.Terminal()
}

// 合計は注文作成時に一度だけ計算して凍結する。
// grand_total = subtotal + shipping_fee - discount
type Order struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64       `gorm:"not null;index" json:"user_id"`
	Subtotal        int64       `gorm:"not null" json:"subtotal"`
	ShippingFee     int64       `gorm:"not null" json:"shipping_fee"`
	Discount        int64       `gorm:"not null" json:"discount"`
	PromoCode       string      `gorm:"type:varchar(50)" json:"promo_code,omitempty"`
	GrandTotal      int64       `gorm:"not null" json:"grand_total"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ShippingAddress string      `gorm:"type:text;not null" json:"shipping_address"`
	IdempotencyKey  *string     `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	CreatedAt       time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
