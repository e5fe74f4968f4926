// Package studio is the HTTP client for the Edge Impulse Studio REST API.
//
// It covers the four endpoints the deployment flow needs: build-ondevice-model,
// job status, job stdout and deployment download. Every call sends the project
// API key in the x-api-key header. Failures are classified with the markers in
// the services package (transport, unknown, malformed); business-level
// success=false responses are returned decoded so callers decide what a
// rejection means for their stage.
package studio
