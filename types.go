package enroller

// CertificateRequest represents one host's request in flight: the generated
// private key, the derived CSR and, after a successful submission, the
// enrollment id assigned by the issuer.
type CertificateRequest struct {
	CommonName   string
	AltNames     []string
	PrivateKey   []byte // PEM, owned by this record until written to disk
	CSR          []byte // PEM, immutable once created
	EnrollmentID int    // 0 until a successful submission
	KeyPath      string
	CertPath     string
}

// EnrollmentRecord correlates a retrieval response back to the correct
// output filename. It does not own any key material.
type EnrollmentRecord struct {
	ID      int
	Subject string
}

// SubmitOutcome is the result of a single enrollment POST. Submitted is
// false for any non-success status; such requests are dropped from the
// batch, not retried.
type SubmitOutcome struct {
	Submitted bool
	ID        int
	Status    int
}

// BatchResult holds the final tally of an enrollment run. Requests contains
// every built request, with the enrollment id and output paths filled in as
// far as the host got through the lifecycle.
type BatchResult struct {
	Requested int
	Retrieved int
	Requests  []*CertificateRequest
}

type enrollmentPayload struct {
	CSR           string `json:"csr"`
	OrgID         int    `json:"orgId"`
	CertType      int    `json:"certType"`
	NumberServers int    `json:"numberServers"`
	ServerType    int    `json:"serverType"`
	Term          int    `json:"term"`
	Comments      string `json:"comments"`
	SubjAltNames  string `json:"subjAltNames,omitempty"`
}

type enrollmentResponse struct {
	SSLID int `json:"sslId"`
}
