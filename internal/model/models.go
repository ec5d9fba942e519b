package model

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusRefunded  OrderStatus = "REFUNDED"
)

// Order is owned by the payment domain. The inventory side only ever sees
// a denormalized snapshot of it carried in stream messages.
type Order struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"product_id"`
	Price     float64     `json:"price"`
	Fee       float64     `json:"fee"`
	Total     float64     `json:"total"`
	Quantity  int         `json:"quantity"`
	Status    OrderStatus `json:"status"`
}

// Product is owned by the inventory domain.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never expose in JSON
	Role         string `json:"role"`
}

// CompletionJob is a durable "complete this order later" record. It replaces
// an in-process timer so a pending completion survives a restart.
type CompletionJob struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"order_id"`
	DueAt   time.Time `json:"due_at"`
}
