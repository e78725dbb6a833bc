// Package cadence tracks how often a model publishes unsolicited status.
//
// A model's publication cadence is one of three modes:
//
//   - None: the model never publishes on its own.
//   - OnChange: the model would publish when its value changes. Change
//     detection is not implemented, so this behaves like None.
//   - Periodic: the model publishes every Period.
//
// State owns at most one ticker. Every Apply replaces the previous ticker
// wholesale: the old one is stopped before a new one is created, so two
// tickers never coexist for the same model. State never publishes by
// itself; the owning model selects on C() and decides what to do on a tick.
//
// # Phases
//
//	Disabled --Periodic(d>0)--> Periodic --OnChange--> OnChange
//	    ^                          |                      |
//	    +---------None-------------+---------None---------+
//
// Periodic with a non-positive period is treated as Disabled.
//
// State is not safe for concurrent use; it belongs to a single model
// goroutine.
package cadence
