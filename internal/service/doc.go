// Package service contains the application use cases. Its subpackages
// orchestrate the pure domain packages (lesson allocation, scheduling,
// grading, queue selection) with the stores defined in internal/store.
//
// Key components:
//
//   - lessons: next-lesson queries, lesson commits and learner settings
//   - review: next-review selection, answer grading and rescheduling
//   - auth: bearer token issuing and validation
//
// Every write is an optimistic read-modify-write of the learner's progress.
// RetryPolicy re-runs it when the store reports a concurrent update, and
// LoadProgress creates the learner implicitly on first use.
//
// Services receive dependencies through constructor injection and never
// depend on a specific store implementation.
package service
