// Package merge implements the audio merge pipeline.
//
// A merge runs through a fixed sequence of stages:
//
//	idle -> normalizing -> manifest_built -> concatenating -> verified
//	                                                        \-> failed
//
// The Orchestrator validates the Request, acquires a private Workspace,
// normalizes every clip to 16-bit stereo 44.1 kHz PCM (in parallel, bounded
// by Config.Workers), writes a concat manifest in request order, runs one
// concatenation and re-encode, verifies the output and publishes it under a
// timestamped name. The Workspace is removed on every exit path and a
// partially written output is never visible at its final name.
//
// Failures are returned as *Error values carrying the failed Stage, one of
// the sentinel kinds (ErrValidation, ErrConversion, ErrConcatenation,
// ErrEmptyOutput) and a reason safe to show to end users. Probe failures
// are never fatal; they degrade to a zero duration.
//
// The external utility is reached only through transcoder.Tool, so the
// whole pipeline runs against transcoder.Fake in tests.
package merge
