package models

import "time"

// User represents a customer account. The email is the record key.
type User struct {
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashedPassword,omitempty"`
	StreetAddress  string    `json:"streetAddress"`
	TOSAgreement   bool      `json:"tosAgreement"`
	SignedUpAt     time.Time `json:"signedUpAt"`
	Orders         []int64   `json:"orders"` // ids of pending (unpaid) orders
}

// HasOrder reports whether id is in the user's pending order list.
func (u *User) HasOrder(id int64) bool {
	for _, o := range u.Orders {
		if o == id {
			return true
		}
	}
	return false
}

// RemoveOrder drops id from the pending order list. It returns false when the
// id was not present.
func (u *User) RemoveOrder(id int64) bool {
	for i, o := range u.Orders {
		if o == id {
			u.Orders = append(u.Orders[:i], u.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// Public returns a copy safe to hand out to clients.
func (u User) Public() User {
	u.HashedPassword = ""
	if u.Orders == nil {
		u.Orders = []int64{}
	}
	return u
}
