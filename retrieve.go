package enroller

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// maxRetrieveAttempts bounds the worst-case wait for issuer-side
	// approval to maxRetrieveAttempts * retrieveWait. The interval is
	// fixed, not exponential, to keep that bound exact.
	maxRetrieveAttempts = 20
	retrieveWait        = 5 * time.Second
)

// sleepFunc is swapped out in tests.
var sleepFunc = time.Sleep

// Retrieve polls the issuer for the signed certificate belonging to the
// given enrollment id and returns the certificate document. The first
// success response wins. Authentication and connection failures during
// polling are treated as transient. After every unsuccessful attempt,
// including the last one, the fixed retrieval interval is slept. When all
// attempts are exhausted a *NotIssuedError is returned.
func (c *Client) Retrieve(id int) ([]byte, error) {
	url := fmt.Sprintf("%s%d%s", c.cfg.RetrieveURL, id, c.cfg.RetrieveFormat)

	var lastStatus int
	for attempt := 1; attempt <= maxRetrieveAttempts; attempt++ {
		resp, err := c.do(http.MethodGet, url, nil)
		if err != nil {
			if !isTransient(err) {
				return nil, err
			}
			log.WithError(err).Debugf("retrieval attempt %d/%d failed", attempt, maxRetrieveAttempts)
			sleepFunc(retrieveWait)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			cont, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return nil, errors.Wrap(err, "could not read certificate document")
			}
			return cont, nil
		}

		_ = resp.Body.Close()
		lastStatus = resp.StatusCode
		log.Debugf("retrieval attempt %d/%d: certificate not ready, status %d", attempt, maxRetrieveAttempts, resp.StatusCode)
		sleepFunc(retrieveWait)
	}

	return nil, &NotIssuedError{Attempts: maxRetrieveAttempts, LastStatus: lastStatus}
}
