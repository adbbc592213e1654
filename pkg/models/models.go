// Package models defines the SportsLeague documents: categories,
// products, carts and orders.
//
// Every document carries an id and a DataType. DataType doubles as the
// partition key in the document store, so a document's id only has to be
// unique within its partition. JSON field names match the documents
// already held in the league's store and returned by the catalog API; do
// not rename them.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Partition keys, stored in each document's DataType field.
const (
	PartitionCategory = "Category"
	PartitionProduct  = "Product"
	PartitionCart     = "Cart"
	PartitionOrder    = "Order"
)

// Document is implemented by every stored model.
type Document interface {
	// Partition returns the partition key for the document type.
	Partition() string
	// DocumentID returns the id, which may be empty before creation.
	DocumentID() string
}

// NewID returns a random document id.
func NewID() string { return uuid.NewString() }

// Category groups products.
type Category struct {
	CategoryID  string `json:"CategoryId"`
	DataType    string `json:"DataType"`
	Description string `json:"Description"`
	Name        string `json:"Name"`
	ID          string `json:"id"`
}

func (c *Category) Partition() string  { return PartitionCategory }
func (c *Category) DocumentID() string { return c.ID }

// Product is a catalog item. ProductID is the catalog's own key and
// differs from the document id.
type Product struct {
	CategoryID    string  `json:"CategoryId"`
	DataType      string  `json:"DataType"`
	Description   string  `json:"Description"`
	ImagePath     string  `json:"ImagePath"`
	Name          string  `json:"Name"`
	ProductID     string  `json:"ProductId"`
	ThumbnailPath string  `json:"ThumbnailPath"`
	UnitPrice     float64 `json:"UnitPrice"`
	ID            string  `json:"id"`
}

func (p *Product) Partition() string  { return PartitionProduct }
func (p *Product) DocumentID() string { return p.ID }

// CartItem references a product by its document id.
type CartItem struct {
	CartItemID string `json:"CartItemId"`
	ProductID  string `json:"ProductId"`
	Quantity   int    `json:"Quantity"`
}

// Cart is a shopping cart.
type Cart struct {
	CartItems   []CartItem `json:"CartItems"`
	DataType    string     `json:"DataType"`
	DateCreated time.Time  `json:"DateCreated"`
	ID          string     `json:"id"`
}

func (c *Cart) Partition() string  { return PartitionCart }
func (c *Cart) DocumentID() string { return c.ID }

// NewCart returns an empty cart created at now.
func NewCart(now time.Time) *Cart {
	return &Cart{
		CartItems:   []CartItem{},
		DataType:    PartitionCart,
		DateCreated: now.UTC(),
		ID:          NewID(),
	}
}

// OrderDetail is one line of an order.
type OrderDetail struct {
	LineItemNumber int     `json:"LineItemNumber"`
	ProductID      string  `json:"ProductId"`
	Quantity       int     `json:"Quantity"`
	UnitPrice      float64 `json:"UnitPrice"`
}

// Order is a placed order. PaymentTransdactionId keeps the spelling used
// by existing documents.
type Order struct {
	Address              string        `json:"Address" validate:"required,notblank"`
	City                 string        `json:"City" validate:"required,notblank"`
	Country              string        `json:"Country" validate:"required,notblank"`
	DataType             string        `json:"DataType"`
	Email                string        `json:"Email" validate:"required,notblank"`
	FirstName            string        `json:"FirstName" validate:"required,notblank"`
	HasBeenShipped       bool          `json:"HasBeenShipped"`
	LastName             string        `json:"LastName" validate:"required,notblank"`
	OrderDate            time.Time     `json:"OrderDate"`
	OrderDetails         []OrderDetail `json:"OrderDetails"`
	PaymentTransactionID string        `json:"PaymentTransdactionId"`
	Phone                string        `json:"Phone" validate:"required,notblank"`
	PostalCode           string        `json:"PostalCode" validate:"required,notblank"`
	ReceiptURL           string        `json:"ReceiptUrl"`
	SMSOptIn             string        `json:"SMSOptIn"`
	SMSStatus            string        `json:"SMSStatus"`
	State                string        `json:"State" validate:"required,notblank"`
	Total                float64       `json:"Total"`
	ID                   string        `json:"id"`
}

func (o *Order) Partition() string  { return PartitionOrder }
func (o *Order) DocumentID() string { return o.ID }

// Stamp sets DataType to the document's partition. Callers stamp every
// document before writing it, so stored bodies always carry the key even
// when a client omitted it.
func Stamp(d Document) {
	switch v := d.(type) {
	case *Category:
		v.DataType = v.Partition()
	case *Product:
		v.DataType = v.Partition()
	case *Cart:
		v.DataType = v.Partition()
	case *Order:
		v.DataType = v.Partition()
	}
}

// Blank reports whether s is empty or only whitespace.
func Blank(s string) bool { return strings.TrimSpace(s) == "" }
