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
// Most aggregates in this codebase carry their GORM mapping directly on the
// domain structs; only the outbox keeps a dedicated persistence model here
// because its payload layout is a wire concern, not a domain one.
//
// Structure:
// - outbox.go: Outbox pattern model for event delivery
package models
