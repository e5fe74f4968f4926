// Package artifact persists downloaded deployments to the output directory.
//
// Writes are atomic: content lands in a temp file in the target directory,
// is fsynced and verified, then renamed into place. An flock on
// .eideploy.lock serialises concurrent runs sharing a directory.
package artifact
