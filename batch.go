package enroller

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// approvalWait models issuer-side bulk approval latency. It is slept once
// per run, after the whole batch was submitted, regardless of batch size.
const approvalWait = 30 * time.Second

// Batch drives the full enrollment lifecycle for a set of hosts: CSR
// construction, submission, the global approval wait, retrieval and
// persistence.
type Batch struct {
	Client       *Client
	Output       *OutputDir
	ApprovalWait time.Duration
}

// NewBatch returns a *Batch with the default approval wait.
func NewBatch(client *Client, output *OutputDir) *Batch {
	return &Batch{
		Client:       client,
		Output:       output,
		ApprovalWait: approvalWait,
	}
}

// Run processes the hosts end to end and returns the final tally. CSR
// build failures, credential rejections, connection failures during
// submission and file I/O failures abort the run; a rejected submission or
// an exhausted retrieval only drops the affected host.
func (b *Batch) Run(hosts []HostSpec) (*BatchResult, error) {
	unique := DedupeHosts(hosts)
	result := &BatchResult{Requested: len(unique)}

	reqs := make([]*CertificateRequest, 0, len(unique))
	for _, h := range unique {
		req, err := BuildCertificateRequest(h.CommonName, h.AltNames)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	result.Requests = reqs

	var records []EnrollmentRecord
	var submitted []*CertificateRequest
	for _, req := range reqs {
		logger := log.WithField("cn", req.CommonName)

		outcome, err := b.Client.Submit(req)
		if err != nil {
			return nil, errors.Wrapf(err, "submitting %s", req.CommonName)
		}
		if !outcome.Submitted {
			logger.Warnf("enrollment rejected with status %d, dropping host", outcome.Status)
			continue
		}
		req.EnrollmentID = outcome.ID

		// the key is written right away so it survives a failed retrieval
		req.KeyPath, err = b.Output.WriteKey(req.CommonName, req.PrivateKey)
		if err != nil {
			return nil, err
		}
		logger.Debugf("submitted, enrollment id %d, key written to %s", outcome.ID, req.KeyPath)

		submitted = append(submitted, req)
		records = append(records, EnrollmentRecord{ID: outcome.ID, Subject: req.CommonName})
	}

	log.Infof("submitted %d of %d request(s), waiting %s for approval", len(records), len(unique), b.ApprovalWait)
	sleepFunc(b.ApprovalWait)

	for i, rec := range records {
		logger := log.WithField("cn", rec.Subject)

		doc, err := b.Client.Retrieve(rec.ID)
		if err != nil {
			logger.WithError(err).Warn("certificate not retrieved")
			continue
		}

		certPath, err := b.Output.WriteCertificate(rec.Subject, doc)
		if err != nil {
			return nil, err
		}
		submitted[i].CertPath = certPath
		logger.Infof("certificate written to %s", certPath)
		result.Retrieved++
	}

	return result, nil
}
