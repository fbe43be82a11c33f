package enroller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Submit posts one enrollment request for req. The certificate type code
// depends on whether the request carries SANs (single-domain vs
// multi-domain). On HTTP 200 the issuer's enrollment id is returned in the
// outcome; any other status yields Submitted == false and the host is meant
// to be dropped from the batch. Authentication and connection failures are
// returned as errors for the caller to handle.
func (c *Client) Submit(req *CertificateRequest) (*SubmitOutcome, error) {
	payload := enrollmentPayload{
		CSR:           string(req.CSR),
		OrgID:         c.cfg.OrgID,
		CertType:      c.cfg.CertTypeSingle,
		NumberServers: 0,
		ServerType:    c.cfg.ServerType,
		Term:          c.cfg.Term,
		Comments:      fmt.Sprintf("bulk enrollment for %s", req.CommonName),
	}
	if len(req.AltNames) > 0 {
		payload.CertType = c.cfg.CertTypeMulti
		payload.SubjAltNames = strings.Join(req.AltNames, ",")
	}

	jsonCont, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal enrollment payload")
	}

	resp, err := c.do(http.MethodPost, c.cfg.EnrollURL, bytes.NewBuffer(jsonCont))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &SubmitOutcome{Status: resp.StatusCode}, nil
	}

	var er enrollmentResponse
	if err = json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, errors.Wrap(err, "could not decode enrollment response")
	}
	if er.SSLID == 0 {
		return nil, errors.New("enrollment response carries no sslId")
	}

	return &SubmitOutcome{Submitted: true, ID: er.SSLID, Status: resp.StatusCode}, nil
}
