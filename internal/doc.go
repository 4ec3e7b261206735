// Package internal documents the registration server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, and routing
// - domain: business logic and domain models
// - storage: Postgres access and migrations
// - jobs: background ticket dispatch via River
// - ticket, email: QR rendering and mail transport
// - auth, config, metrics, sanitize: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
