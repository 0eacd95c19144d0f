// Package app composes the scan engine into a running application.
//
// The package wires services together and manages their lifecycle; business
// logic lives in the service packages below it.
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── market/         # Price quotes and symbol metadata
//	│   ├── opportunity/    # Trading opportunities and ranking
//	│   └── scan/           # Scan sessions and options
//	├── services/
//	│   ├── exchange/       # Client pool, circuit breakers, rate limits
//	│   ├── market/         # Shared TTL price cache
//	│   ├── scanner/        # Strategy scanners
//	│   ├── universe/       # Symbol universe registry and refresher
//	│   └── scan/           # Scan orchestrator
//	├── storage/            # Store interfaces, memory and redis backends
//	├── httpapi/            # REST handlers
//	├── system/             # Service lifecycle management
//	└── metrics/            # Prometheus collectors
//
// Dependency flow runs one way: cmd/scanengine builds an Application from
// configuration and stores; the Application composes services; services
// depend on domain models and storage interfaces, never on each other's
// internals.
package app
