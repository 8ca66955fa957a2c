// Package clock abstracts timers and tickers behind an injectable Clock
// interface.
//
// The pipeline never calls time.Now, time.AfterFunc, or time.NewTicker
// directly; every component takes a Clock so that tests can substitute
// clock.NewManual() and step virtual time deterministically. Production
// code uses clock.System().
package clock
