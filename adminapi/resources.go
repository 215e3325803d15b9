package adminapi

import "time"

// Status is the lifecycle state of an actor or request managed through the
// console. Transitions are performed server-side; the client only names the
// target state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSuspended Status = "SUSPENDED"
)

// PageRequest selects one page of a listing.
type PageRequest struct {
	Page int
	Size int
}

// PageResult is one page of records plus the paging echo from the backend.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalCount int `json:"totalCount"`
}

// User is an end-user account of the platform.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a merchant registered on the platform.
type Store struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BusinessNo string    `json:"businessNo"`
	OwnerEmail string    `json:"ownerEmail"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Bank is a participating issuing bank.
type Bank struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Status Status `json:"status"`
}

// Account is a token account held by a user or store.
type Account struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	BankID  string `json:"bankId"`
	Balance int64  `json:"balance"`
	Status  Status `json:"status"`
}

// TokenRequest is a bank's request to issue or redeem tokens, awaiting
// operator review.
type TokenRequest struct {
	ID          string    `json:"id"`
	BankID      string    `json:"bankId"`
	Amount      int64     `json:"amount"`
	Status      Status    `json:"status"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Settlement is one settled payment between a user and a store.
type Settlement struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	UserID    string    `json:"userId"`
	Amount    int64     `json:"amount"`
	Status    Status    `json:"status"`
	SettledAt time.Time `json:"settledAt"`
}
