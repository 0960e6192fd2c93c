package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the availability flag the low-stock sweep reconciles.
type ProductStatus string

const (
	ProductStatusAvailable  ProductStatus = "available"
	ProductStatusOutOfStock ProductStatus = "out-of-stock"
)

type Product struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description *string       `json:"description" db:"description"`
	Stock       int           `json:"stock" db:"stock"`
	Status      ProductStatus `json:"status" db:"status"`
	CreatedBy   *uuid.UUID    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// LowStockItem is a product picked up by the scanner together with the name of
// the account that created it. It only lives for the duration of one sweep.
type LowStockItem struct {
	Product   Product `json:"product"`
	OwnerName string  `json:"owner_name"`
}

// StockUpdate is the body accepted by the restock endpoint.
type StockUpdate struct {
	Stock *int `json:"stock"`
}
