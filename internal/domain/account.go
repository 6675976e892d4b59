package domain

// Account holds a client's balances. Total is always derived from Available
// and Held, so the two can never disagree.
type Account struct {
	Client    ClientID
	Available Amount
	Held      Amount
	Locked    bool
}

// NewAccount returns a zeroed, unlocked account.
func NewAccount(client ClientID) *Account {
	return &Account{Client: client}
}

// Total returns Available + Held.
func (a Account) Total() Amount {
	return a.Available.Add(a.Held)
}

// ValidateDebit checks that amount can be withdrawn from available funds.
func (a *Account) ValidateDebit(amount Amount) error {
	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateMovement checks that deposits and withdrawals are still allowed.
func (a *Account) ValidateMovement() error {
	if a.Locked {
		return ErrAccountLocked
	}
	return nil
}

// Credit adds amount to available funds.
func (a *Account) Credit(amount Amount) {
	a.Available = a.Available.Add(amount)
}

// Debit removes amount from available funds.
func (a *Account) Debit(amount Amount) {
	a.Available = a.Available.Sub(amount)
}

// Hold moves amount from available to held. Available may go negative when
// the disputed funds were already withdrawn.
func (a *Account) Hold(amount Amount) {
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
}

// Release moves amount from held back to available.
func (a *Account) Release(amount Amount) {
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
}

// Reverse removes amount from held funds and locks the account.
func (a *Account) Reverse(amount Amount) {
	a.Held = a.Held.Sub(amount)
	a.Locked = true
}

// AccountReport is one row of the final balance report.
type AccountReport struct {
	Client    ClientID
	Available Amount
	Held      Amount
	Total     Amount
	Locked    bool
}

// Report folds the account into a report row.
func (a Account) Report() AccountReport {
	return AccountReport{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}
