// Package deploy drives a remote Studio deployment build from submission to
// artifact download.
//
// A Controller owns the Studio API and hands out the pieces of the flow:
// Submit starts a build job, a Watcher polls its status on a fixed interval
// while a LogTail streams newly appended job output to a LineSink, and
// Download fetches the finished artifact. Run strings the three together in
// strict sequence. The controller never writes to disk; persisting the
// artifact is left to the caller.
package deploy
