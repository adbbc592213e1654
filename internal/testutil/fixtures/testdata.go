// Package fixtures holds shared test identities and league documents so
// tests across packages use the same values.
package fixtures

import (
	"time"

	"github.com/ahems/SportsLeague/pkg/models"
)

// Identity values for a test tenant.
const (
	// TenantName is the directory name; the tenant domain is
	// "contoso.onmicrosoft.com".
	TenantName = "contoso"

	// TenantID is the directory GUID.
	TenantID = "72f988bf-86f1-41af-91ab-2d7cd011db47"

	// Audience is the API's application ID URI.
	Audience = "https://contoso.onmicrosoft.com/sportsleague-api"

	// ClientID is the API's application id.
	ClientID = "6e74172b-be56-4843-9ff4-e66a39bb12e3"

	// UserName is the display name of the test caller.
	UserName = "Megan Bowen"

	// UserSubject is the subject claim of the test caller.
	UserSubject = "AAAAAAAAAAAAAAAAAAAAAIkzqFVrSaSaFHy782bbtaQ"

	// SubscriptionKey is an API Management key for catalog tests.
	SubscriptionKey = "0123456789abcdef0123456789abcdef"
)

// Created is the fixed clock used for generated documents.
var Created = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

// Categories returns two categories, out of CategoryId order.
func Categories() []models.Category {
	return []models.Category{
		{ID: "cat-2", CategoryID: "CAT-02", DataType: models.PartitionCategory, Name: "Footwear", Description: "Boots and trainers"},
		{ID: "cat-1", CategoryID: "CAT-01", DataType: models.PartitionCategory, Name: "Balls", Description: "Match and training balls"},
	}
}

// Products returns three products, out of ProductId order.
func Products() []models.Product {
	return []models.Product{
		{ID: "prod-3", ProductID: "P-03", CategoryID: "CAT-02", DataType: models.PartitionProduct, Name: "Moulded Boots", UnitPrice: 89.95},
		{ID: "prod-1", ProductID: "P-01", CategoryID: "CAT-01", DataType: models.PartitionProduct, Name: "Match Ball", UnitPrice: 34.5},
		{ID: "prod-2", ProductID: "P-02", CategoryID: "CAT-01", DataType: models.PartitionProduct, Name: "Training Ball", UnitPrice: 19.99},
	}
}

// Order returns a complete order that passes CreateOrder validation.
func Order() models.Order {
	return models.Order{
		Address:    "1 Stadium Way",
		City:       "Redmond",
		Country:    "USA",
		Email:      "megan@contoso.com",
		FirstName:  "Megan",
		LastName:   "Bowen",
		OrderDate:  Created,
		Phone:      "(425) 555-0100",
		PostalCode: "98052",
		State:      "WA",
		Total:      69,
		OrderDetails: []models.OrderDetail{
			{LineItemNumber: 0, ProductID: "prod-1", Quantity: 2, UnitPrice: 34.5},
		},
	}
}
