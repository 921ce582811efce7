// Package http exposes the navigation service over a JSON API.
//
// Projects are opened with POST /api/projects and addressed by the returned
// ID. Navigation events are accepted with 202: the navigation context is
// updated before the response, sampling and logging continue in the
// background.
package http
