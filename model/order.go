package model

import "time"

// Participant is a JSON snapshot of one side of an order.
type Participant struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PersonalNumber string `json:"personal_number,omitempty"`
	Telephone      string `json:"telephone,omitempty"`
	Address        string `json:"address,omitempty"`
}

// OrderDetail is the part of a placed order needed to finalize its contract.
type OrderDetail struct {
	Number    string      `json:"number"`
	CreatedAt time.Time   `json:"created_at"`
	Owner     Participant `json:"owner"`
	Renter    Participant `json:"renter"`
}
