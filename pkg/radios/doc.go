// Package radios tracks the on/off state of auxiliary radios that must be
// powered off before satellite service is considered fully active.
//
// The Tracker answers "are all dependent radios off?" as a pure function
// over the current state set and raises one edge-triggered notification
// whenever that predicate flips from false to true. Updates that do not
// change a radio's recorded state are ignored, so the notification can
// never fire twice for the same settling.
package radios
