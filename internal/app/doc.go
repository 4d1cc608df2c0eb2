// Package app composes the canteen point-of-sale services into a running
// application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go   # Application struct, wiring and lifecycle
//	├── domain/          # Pure data: money, cart, order, shop, student, admin, identity
//	├── storage/         # Store interfaces, memory/ and postgres/ implementations
//	├── services/        # auth, catalog, checkout, shops, admin
//	├── session/         # Sessions, signed tokens, memory and redis stores
//	├── events/          # Order events: websocket hub and AMQP publisher
//	├── httpapi/         # JSON API handlers and routing
//	├── seed/            # Fixture loading for demo data
//	├── runtime/         # Config driven construction of the whole process
//	├── system/          # Lifecycle manager for background services
//	└── metrics/         # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/canteen
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi ──► internal/app (Application)
//	                                                        │
//	                                                        ├──► services/*
//	                                                        │         │
//	                                                        │         └──► storage (interfaces) ──► domain/*
//	                                                        ├──► session
//	                                                        └──► events
//
// Services depend only on the storage interfaces. The memory store backs
// tests and demo runs; the postgres store is selected by configuration.
package app
