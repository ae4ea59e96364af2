// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): chunking and persisting
// documents, two-phase retrieval, document management and settings.
package services
