package enums

// WalletScope distinguishes the platform ledger from per-seller ledgers.
type WalletScope string

const (
	WalletScopeShop   WalletScope = "shop"
	WalletScopeSeller WalletScope = "seller"
)

func (w WalletScope) String() string {
	return string(w)
}
