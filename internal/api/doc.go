// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the lesson and review services to a
// JSON API for authenticated learners.
package api
