package enums

// SellerPaymentStatus reports whether a seller can receive payouts.
type SellerPaymentStatus string

const (
	SellerPaymentInactive SellerPaymentStatus = "inactive"
	SellerPaymentActive   SellerPaymentStatus = "active"
)

func (s SellerPaymentStatus) IsValid() bool {
	return s == SellerPaymentInactive || s == SellerPaymentActive
}
