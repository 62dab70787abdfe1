package enums

import "slices"

// WithdrawalStatus tracks a seller payout request. Pending requests move to
// success once an admin confirms the transfer.
type WithdrawalStatus string

const (
	WithdrawalStatusPending WithdrawalStatus = "pending"
	WithdrawalStatusSuccess WithdrawalStatus = "success"
)

var withdrawalStatuses = []WithdrawalStatus{WithdrawalStatusPending, WithdrawalStatusSuccess}

func (w WithdrawalStatus) String() string { return string(w) }

func (w WithdrawalStatus) IsValid() bool { return slices.Contains(withdrawalStatuses, w) }

func ParseWithdrawalStatus(value string) (WithdrawalStatus, error) {
	return parse("withdrawal status", value, withdrawalStatuses)
}
