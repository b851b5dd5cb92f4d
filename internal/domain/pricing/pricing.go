package pricing

// Line は予約済みの (単価, 数量) の組。
// 単価はカタログの現在値ではなく、在庫確保時に読んだスナップショットを渡す。
type Line struct {
	UnitPrice int64
	Quantity  int64
}

// Quote は注文合計の計算結果。
type Quote struct {
	Subtotal    int64
	ShippingFee int64
	Discount    int64
	GrandTotal  int64
}

// Calculate は純粋な合計計算。
// grand_total = subtotal + shipping_fee - discount
// 割引が小計を超えてもそのまま受け入れる（妥当性検証は呼び出し側の責任）。
func Calculate(lines []Line, shippingFee int64, discount int64) Quote {
	var subtotal int64 = 0
	for _, l := range lines {
		subtotal += l.UnitPrice * l.Quantity
	}

	return Quote{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Discount:    discount,
		GrandTotal:  subtotal + shippingFee - discount,
	}
}
