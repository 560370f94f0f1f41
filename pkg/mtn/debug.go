package mtn

import "os"

// DebugEnabled controls verbose diagnostic logging throughout the module.
// Grounded on pkg/mutagen/debug.go's environment-variable gate.
var DebugEnabled = os.Getenv("MONOTONE_SUB_DEBUG") != ""
