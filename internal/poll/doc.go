// Package poll implements the polling loop.
//
// A Loop drives one Job on a fixed interval:
//   - waits for whichever comes first, the stop signal or the interval timer
//   - stop always wins, even when the timer fired in the same instant
//   - fetch errors are printed inline and the loop keeps going
//   - a panic inside a tick ends the loop with a Failed outcome
package poll
