package wallet

import "time"

// TxType is the direction of a wallet transaction.
type TxType string

const (
	Credit TxType = "CREDIT"
	Debit  TxType = "DEBIT"
)

// Wallet is the stored balance of one account, in minor units.
type Wallet struct {
	ID        string
	UserID    string
	Balance   int64
	UpdatedAt time.Time
}

// Transaction is one historical movement on a wallet.
type Transaction struct {
	ID          string
	WalletID    string
	BookingID   *int64
	Type        TxType
	Amount      int64
	Description string
	CreatedAt   time.Time
}
