package registry

import btclog "github.com/btcsuite/btclog/v2"

var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the registry package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
