package converter

type ProductInfoRedisModel struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int64  `json:"stock"`
	Available  bool   `json:"available"`
}

// CartItemRedisModel хранится в поле хэша корзины с ключом id товара.
type CartItemRedisModel struct {
	Quantity       int64 `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}
