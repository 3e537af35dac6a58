// Package events provides types and interfaces for learner progress events.
//
// Services emit an Event whenever lessons are committed, a level is
// completed, or a review is recorded. Handlers registered with an
// EventEmitter receive them without the services knowing who listens.
//
// The primary components are:
// - Event: a typed notification with a JSON payload
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
