package acmeendpoints

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/hlandau/xlog"
)

var log, Log = xlog.NewQuiet("acmeendpoints")

// ErrNotFound is returned when no matching endpoint can be found.
var ErrNotFound = errors.New("no corresponding endpoint found")

// ByDirectoryURL finds a registered endpoint with the given directory URL.
// If no such endpoint is found, returns ErrNotFound.
func ByDirectoryURL(directoryURL string) (*Endpoint, error) {
	for _, e := range endpoints {
		if directoryURL == e.DirectoryURL {
			return e, nil
		}

		if e.deprecatedDirectoryURLRegexp != nil && e.deprecatedDirectoryURLRegexp.MatchString(directoryURL) {
			return e, nil
		}
	}

	return nil, ErrNotFound
}

// CreateByDirectoryURL returns the registered endpoint for directoryURL if
// one exists, or else synthesizes an ad hoc Endpoint carrying only the
// directory URL (also used as its Title) and a derived Code. It is acceptable to change the fields
// of the returned Endpoint when it was synthesized this way.
func CreateByDirectoryURL(directoryURL string) (*Endpoint, error) {
	e, err := ByDirectoryURL(directoryURL)
	if err == nil {
		return e, nil
	}

	h := sha256.New()
	h.Write([]byte(directoryURL))
	code := fmt.Sprintf("Temp%08x", h.Sum(nil)[0:4])

	e = &Endpoint{
		Title:        directoryURL,
		DirectoryURL: directoryURL,
		Code:         code,
	}

	log.Infof("synthesized ad hoc endpoint %s for %s", code, directoryURL)

	return e, nil
}
