// Package cvar is a small store of named console variables.
//
// A variable has a string value with integer and float views, a default and
// flags. Variables flagged Archive are persisted to an archive file of
// "set name "value"" lines, which can be reloaded at startup or watched for
// edits while the program runs.
//
// Values may be set from any goroutine; readers see either the old or the
// new value, never a torn one.
package cvar
