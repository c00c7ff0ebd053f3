package services

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// TrackTime logs a service call's elapsed time at debug level. Deferred at
// the top of the projection, reconciliation, and ingestion entry points,
// which all scale with ledger size.
func TrackTime(name string, start time.Time) {
	log.Debugf("%s took %d ms", name, time.Since(start).Milliseconds())
}
