// Package domain defines the core business types for the outreach pipeline:
// leads, messages, queue entries, and their status enumerations.
//
// Types in this package are pure value objects with no behavior beyond
// validation, no database dependencies, and no HTTP concerns. They are the
// shared language between handlers, services, and repositories.
//
// Status values arriving from external input (API payloads, database rows)
// must be validated with the Parse helpers at the boundary; everything past
// the boundary works with the typed constants only.
package domain
