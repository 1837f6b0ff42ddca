package ledger

import "github.com/shopspring/decimal"

// The Check functions are pure: a nil result means the value is acceptable.

func CheckAccountID(accountID int64) error {
	if accountID <= 0 {
		return invalidArgument(ReasonAccountIDNotPositive)
	}

	return nil
}

func CheckInitialBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return invalidArgument(ReasonNegativeInitialBalance)
	}

	return nil
}

func CheckDeposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidArgument(ReasonAmountNotPositive)
	}

	return nil
}

// CheckWithdraw expects the withdrawal as a negative delta.
func CheckWithdraw(delta decimal.Decimal) error {
	if !delta.IsNegative() {
		return invalidArgument(ReasonAmountNotNegative)
	}

	return nil
}

func CheckResultingBalance(balanceAfter decimal.Decimal) error {
	if balanceAfter.IsNegative() {
		return insufficientFunds(ReasonInsufficientFunds)
	}

	return nil
}

// CheckTransfer rejects a transfer to the same account whatever the amount.
func CheckTransfer(fromID, toID int64, amount decimal.Decimal) error {
	if fromID == toID {
		return invalidArgument(ReasonSameAccount)
	}

	err := CheckAccountID(fromID)
	if err != nil {
		return err
	}

	err = CheckAccountID(toID)
	if err != nil {
		return err
	}

	if !amount.IsPositive() {
		return invalidArgument(ReasonAmountNotPositive)
	}

	return nil
}
