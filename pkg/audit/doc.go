// Package audit records who did what to which annotation, when.
//
// Writes are fire-and-forget: collaboration traffic hands records to a
// Worker whose bounded queue is drained by a single background
// goroutine. A full queue drops the record and a failing sink is
// logged; neither ever blocks or fails the event path.
package audit
