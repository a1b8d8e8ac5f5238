package repositories

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// nowUTC is a package-level var so tests can pin it.
var nowUTC = func() time.Time { return time.Now().UTC() }

func nullIfEmpty(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
