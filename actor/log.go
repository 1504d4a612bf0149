package actor

import (
	btclog "github.com/btcsuite/btclog/v2"
)

// log is the package-wide logger, disabled by default. Callers that embed
// this module into a larger binary wire up a real sink via UseLogger, in
// the same style the rest of this codebase's packages use.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the actor package. It should be called
// once during process startup, before any actor system is constructed.
func UseLogger(logger btclog.Logger) {
	log = logger
}
