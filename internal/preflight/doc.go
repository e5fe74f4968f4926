// Package preflight provides readiness checks for the Studio API and the
// directories eideploy writes to.
//
// The CLI "eideploy doctor" command renders every check; "eideploy build"
// runs the directory checks before submitting so a doomed run fails before
// the remote job is started.
package preflight
