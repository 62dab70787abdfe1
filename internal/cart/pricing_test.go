package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func line(seller uuid.UUID, shop string, price int64, discount, qty, stock int) Line {
	return Line{
		CartItemID: uuid.New(),
		Quantity:   qty,
		Product: ProductInfo{
			ID:       uuid.New(),
			SellerID: seller,
			ShopName: shop,
			Price:    dec(price),
			Discount: discount,
			Stock:    stock,
		},
	}
}

func TestPriceTwoSellers(t *testing.T) {
	t.Parallel()

	sellerA, sellerB := uuid.New(), uuid.New()
	lines := []Line{
		line(sellerA, "A", 100, 10, 1, 5), // 90 -> share 86
		line(sellerB, "B", 45, 0, 1, 5),   // 45 -> share 43
		line(sellerA, "A", 20, 0, 2, 2),   // 20 -> share 19 x2
	}

	got := Price(lines, Rules{CommissionPercent: 5, ShippingFeePerSeller: dec(20)})

	if !got.TotalPrice.Equal(dec(175)) {
		t.Fatalf("expected total 175, got %s", got.TotalPrice)
	}
	if !got.ShippingFee.Equal(dec(40)) {
		t.Fatalf("expected shipping 40, got %s", got.ShippingFee)
	}
	if got.BuyableItemCount != 4 || got.CartProductCount != 4 {
		t.Fatalf("unexpected counts buyable=%d cart=%d", got.BuyableItemCount, got.CartProductCount)
	}
	if len(got.Groups) != 2 {
		t.Fatalf("expected 2 seller groups, got %d", len(got.Groups))
	}
	if got.Groups[0].SellerID != sellerA || !got.Groups[0].Price.Equal(dec(124)) {
		t.Fatalf("unexpected first group %+v", got.Groups[0])
	}
	if got.Groups[1].SellerID != sellerB || !got.Groups[1].Price.Equal(dec(43)) {
		t.Fatalf("unexpected second group %+v", got.Groups[1])
	}
	if len(got.Groups[0].Products) != 2 {
		t.Fatalf("expected seller A to carry 2 lines, got %d", len(got.Groups[0].Products))
	}
}

func TestPriceExcludesOutOfStock(t *testing.T) {
	t.Parallel()

	seller := uuid.New()
	lines := []Line{
		line(seller, "A", 99, 15, 1, 3), // 85 -> share 81
		line(uuid.New(), "B", 50, 0, 4, 3),
	}

	got := Price(lines, Rules{CommissionPercent: 5, ShippingFeePerSeller: dec(20)})

	if len(got.OutOfStock) != 1 || got.OutOfStock[0].Quantity != 4 {
		t.Fatalf("expected one out-of-stock line, got %+v", got.OutOfStock)
	}
	if !got.TotalPrice.Equal(dec(85)) {
		t.Fatalf("expected total 85, got %s", got.TotalPrice)
	}
	if len(got.Groups) != 1 || !got.Groups[0].Price.Equal(dec(81)) {
		t.Fatalf("unexpected groups %+v", got.Groups)
	}
	if !got.ShippingFee.Equal(dec(20)) {
		t.Fatalf("expected shipping 20, got %s", got.ShippingFee)
	}
	if got.BuyableItemCount != 1 || got.CartProductCount != 5 {
		t.Fatalf("unexpected counts buyable=%d cart=%d", got.BuyableItemCount, got.CartProductCount)
	}
}

func TestPriceEmptyCart(t *testing.T) {
	t.Parallel()

	got := Price(nil, Rules{CommissionPercent: 5, ShippingFeePerSeller: dec(20)})
	if !got.TotalPrice.IsZero() || !got.ShippingFee.IsZero() || len(got.Groups) != 0 {
		t.Fatalf("expected zero summary, got %+v", got)
	}
	if got.Groups == nil || got.OutOfStock == nil {
		t.Fatal("expected empty slices for JSON rendering")
	}
}

func TestGroupBySellerCommissionIsPerUnit(t *testing.T) {
	t.Parallel()

	seller := uuid.New()
	// 19 per unit: floor(19*5/100)=0 so the share stays 19 per unit even
	// though floor(57*5/100)=2 on the line total.
	groups := GroupBySeller([]Line{line(seller, "A", 19, 0, 3, 10)}, 5)
	if len(groups) != 1 || !groups[0].Price.Equal(dec(57)) {
		t.Fatalf("expected per-unit commission floor, got %+v", groups)
	}
}
