// Package bgtask contains the long-running background loops a build run
// keeps alive next to its main thread of control: log tailers that wait
// for a file to appear and then follow it, and a heartbeat that keeps a
// quiet build from being declared hung by the CI provider.
//
// Tasks run as goroutines owned by the App and stop when their context is
// cancelled; they hold no state that must survive the process.
package bgtask
