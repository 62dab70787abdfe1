package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/easyshop-backend/pkg/checkout"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
)

// Rules are the platform pricing knobs.
type Rules struct {
	CommissionPercent    int64
	ShippingFeePerSeller decimal.Decimal
}

// ProductInfo is the live product view attached to a cart line.
type ProductInfo struct {
	ID       uuid.UUID       `json:"id"`
	SellerID uuid.UUID       `json:"sellerId"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Brand    string          `json:"brand"`
	ShopName string          `json:"shopName"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Discount int             `json:"discount"`
	Stock    int             `json:"stock"`
}

// Line is one cart row joined with its product.
type Line struct {
	CartItemID uuid.UUID   `json:"cartItemId"`
	Quantity   int         `json:"quantity"`
	Product    ProductInfo `json:"productInfo"`
}

// InStock reports whether the product can cover the requested quantity.
func (l Line) InStock() bool {
	return l.Product.Stock >= l.Quantity
}

// UnitPrice is the customer-facing price after discount.
func (l Line) UnitPrice() decimal.Decimal {
	return checkout.DiscountedPrice(l.Product.Price, l.Product.Discount)
}

// SellerGroup aggregates in-stock lines of one seller. Price is the seller's
// share after discount and commission.
type SellerGroup struct {
	SellerID uuid.UUID       `json:"sellerId"`
	ShopName string          `json:"shopName"`
	Price    decimal.Decimal `json:"price"`
	Products []Line          `json:"products"`
}

// Summary is the priced view of a cart.
type Summary struct {
	Groups           []SellerGroup   `json:"cartProducts"`
	TotalPrice       decimal.Decimal `json:"price"`
	ShippingFee      decimal.Decimal `json:"shippingFee"`
	BuyableItemCount int             `json:"buyProductItem"`
	CartProductCount int             `json:"cartProductCount"`
	OutOfStock       []Line          `json:"outOfStockProducts"`
}

// LineFromModel maps a persisted cart item with its preloaded product.
func LineFromModel(item models.CartItem) Line {
	line := Line{CartItemID: item.ID, Quantity: item.Quantity}
	if item.Product != nil {
		p := item.Product
		line.Product = ProductInfo{
			ID:       p.ID,
			SellerID: p.SellerID,
			Name:     p.Name,
			Slug:     p.Slug,
			Brand:    p.Brand,
			ShopName: p.ShopName,
			Image:    p.PrimaryImage(),
			Price:    p.Price,
			Discount: p.Discount,
			Stock:    p.Stock,
		}
	}
	return line
}

// Price partitions lines by stock and prices the buyable ones.
func Price(lines []Line, rules Rules) Summary {
	summary := Summary{
		Groups:      []SellerGroup{},
		TotalPrice:  decimal.Zero,
		ShippingFee: decimal.Zero,
		OutOfStock:  []Line{},
	}

	inStock := make([]Line, 0, len(lines))
	for _, line := range lines {
		summary.CartProductCount += line.Quantity
		if !line.InStock() {
			summary.OutOfStock = append(summary.OutOfStock, line)
			continue
		}
		inStock = append(inStock, line)
		summary.BuyableItemCount += line.Quantity
		summary.TotalPrice = summary.TotalPrice.Add(line.UnitPrice().Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	summary.Groups = GroupBySeller(inStock, rules.CommissionPercent)
	summary.ShippingFee = rules.ShippingFeePerSeller.Mul(decimal.NewFromInt(int64(len(summary.Groups))))
	return summary
}

// GroupBySeller buckets lines by seller in first-seen order. The commission
// floor is taken per unit before multiplying by quantity.
func GroupBySeller(lines []Line, commissionPercent int64) []SellerGroup {
	groups := make([]SellerGroup, 0)
	index := make(map[uuid.UUID]int)

	for _, line := range lines {
		sellerID := line.Product.SellerID
		pos, ok := index[sellerID]
		if !ok {
			pos = len(groups)
			index[sellerID] = pos
			groups = append(groups, SellerGroup{
				SellerID: sellerID,
				ShopName: line.Product.ShopName,
				Price:    decimal.Zero,
			})
		}
		share := checkout.SellerShare(line.UnitPrice(), commissionPercent)
		groups[pos].Price = groups[pos].Price.Add(share.Mul(decimal.NewFromInt(int64(line.Quantity))))
		groups[pos].Products = append(groups[pos].Products, line)
	}
	return groups
}
