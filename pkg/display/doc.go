// Package display implements a Generic OnOff server that drives a 5x5 LED
// matrix.
//
// While the server is off the matrix is dark and the model only waits for
// messages. A Set or SetUnacknowledged with a non-zero OnOff switches it on:
// the model then plays a breathing animation (all LEDs lit, brightness
// ramping up and down, a pause, repeat) while it keeps listening. Any new
// Set stops the animation, waits for it to finish touching the matrix and
// applies the new state. Get and Status never change state.
//
// The Matrix interface abstracts the LED driver. VirtualMatrix is an
// in-memory implementation used by the simulated node and by tests.
package display
