package model

import "time"

// Conversation steps follow the rental lifecycle after the order is placed.
const (
	StepOrderPlaced = "order_placed"
	StepHandover    = "handover"
	StepReturned    = "returned"
)

// Conversation is the message thread between owner and renter of one order.
type Conversation struct {
	ID          string      `json:"id"`
	OrderID     string      `json:"order_id"`
	Owner       Participant `json:"owner"`
	Receiver    Participant `json:"receiver"`
	CurrentStep string      `json:"current_step"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IsParticipant reports whether email is one of the two sides.
func (c *Conversation) IsParticipant(email string) bool {
	d := Document{OwnerEmail: c.Owner.Email, RenterEmail: c.Receiver.Email}
	_, ok := d.PartyFor(email)
	return ok
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderEmail    string    `json:"sender_email"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReadCursor marks the newest message a participant has seen.
type ReadCursor struct {
	ConversationID string    `json:"conversation_id"`
	UserEmail      string    `json:"user_email"`
	LastReadAt     time.Time `json:"last_read_at"`
}
