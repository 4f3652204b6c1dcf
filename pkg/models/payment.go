package models

import "time"

// PaymentRecord is a row in the relational payment ledger.
type PaymentRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GatewayOrderID string    `gorm:"type:varchar(64);index" json:"gatewayOrderId"`
	PaymentID      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"paymentId"`
	OrderID        string    `gorm:"type:varchar(24);index" json:"orderId"`
	UserID         string    `gorm:"type:varchar(24);index" json:"userId"`
	Amount         float64   `gorm:"type:decimal(12,2)" json:"amount"`
	Currency       string    `gorm:"type:varchar(8)" json:"currency"`
	Status         string    `gorm:"type:varchar(20);default:'completed'" json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}
