// Package domain contains the core entities of the progression and review
// engine: curriculum subjects, per-aspect review cards, and the learner's
// progress record. It has no knowledge of storage or transport.
package domain
