// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - cart.go: carts and cart_items
// - inventory.go: stock_levels and reservations
// - tax.go: tax_types and product_taxes
// - order.go: orders and order_items
// - checkout.go: checkout_sessions
// - catalog.go: products (read-only catalog mirror)
//
// Nested value objects (variant selections, tax breakdowns, sub-orders) are
// stored as JSON text columns.
package models
