// Package store defines the persistence collaborators of the learning
// engine: the read-only curriculum, the per-learner progress document and
// learner synonyms. Implementations live under internal/platform.
package store
