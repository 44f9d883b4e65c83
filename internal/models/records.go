package models

// OrderRecord is a row of the order store.
type OrderRecord struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// ContactRecord is a completed set of contact details for a human representative callback.
type ContactRecord struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}
