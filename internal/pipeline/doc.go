// Package pipeline implements the status-driven decision engine for the
// outreach pipeline.
//
// The engine is a pure lookup: given a lead status and an optional message
// status it returns the next pipeline action and its parameters. It performs
// no I/O and never fails; statuses outside its tables come back as a
// reportable error action for the orchestrator to handle.
package pipeline
