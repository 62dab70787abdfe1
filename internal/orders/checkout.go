package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/internal/cart"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
)

// InputFromCart turns a freshly priced cart into a placement request, so the
// client never supplies prices itself.
func InputFromCart(customerID uuid.UUID, shipping models.ShippingInfo, summary *cart.Summary) PlaceOrderInput {
	input := PlaceOrderInput{
		CustomerID:   customerID,
		ShippingInfo: shipping,
	}
	if summary == nil {
		return input
	}
	input.TotalPrice = summary.TotalPrice
	input.ShippingFee = summary.ShippingFee
	for _, group := range summary.Groups {
		g := GroupInput{SellerID: group.SellerID, Price: group.Price}
		for _, line := range group.Products {
			g.Products = append(g.Products, ProductInput{
				CartItemID: line.CartItemID,
				Quantity:   line.Quantity,
				Product: models.ProductSnapshot{
					ProductID: line.Product.ID,
					SellerID:  line.Product.SellerID,
					Name:      line.Product.Name,
					Slug:      line.Product.Slug,
					Brand:     line.Product.Brand,
					ShopName:  line.Product.ShopName,
					Image:     line.Product.Image,
					Price:     line.Product.Price,
					Discount:  line.Product.Discount,
				},
			})
		}
		input.Groups = append(input.Groups, g)
	}
	return input
}
