package enroller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIssuer is a minimal in-memory issuer API for batch tests.
type stubIssuer struct {
	nextID     int
	rejectCNs  []string
	neverIssue bool
	submitted  map[int]string // enrollment id -> common name
}

func newStubIssuer() *stubIssuer {
	return &stubIssuer{nextID: 1000, submitted: make(map[int]string)}
}

func (s *stubIssuer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/enroll", func(w http.ResponseWriter, r *http.Request) {
		var payload enrollmentPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		for _, cn := range s.rejectCNs {
			if strings.Contains(payload.Comments, cn) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		s.nextID++
		s.submitted[s.nextID] = payload.Comments
		_ = json.NewEncoder(w).Encode(enrollmentResponse{SSLID: s.nextID})
	})
	mux.HandleFunc("/collect/", func(w http.ResponseWriter, r *http.Request) {
		if s.neverIssue {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "CERT %s", r.URL.Path)
	})
	return mux
}

func newTestBatch(t *testing.T, srvURL string) (*Batch, *OutputDir) {
	t.Helper()
	out, err := NewOutputDir(t.TempDir())
	require.NoError(t, err)

	b := NewBatch(NewClient(testConfig(srvURL), nil), out)
	b.ApprovalWait = 0
	return b, out
}

func TestBatchRunFullSuccess(t *testing.T) {
	stubSleep(t)

	issuer := newStubIssuer()
	srv := httptest.NewServer(issuer.handler(t))
	defer srv.Close()

	b, out := newTestBatch(t, srv.URL)
	result, err := b.Run([]HostSpec{
		{CommonName: "one.example.org"},
		{CommonName: "two.example.org", AltNames: []string{"alt.example.org"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Requested)
	assert.Equal(t, 2, result.Retrieved)

	for _, cn := range []string{"one.example.org", "two.example.org"} {
		assert.FileExists(t, out.KeyPath(cn))
		assert.FileExists(t, out.CertPath(cn))
	}

	// every request carries its assigned id and final output paths
	require.Len(t, result.Requests, 2)
	for _, req := range result.Requests {
		assert.NotZero(t, req.EnrollmentID)
		assert.Equal(t, out.KeyPath(req.CommonName), req.KeyPath)
		assert.Equal(t, out.CertPath(req.CommonName), req.CertPath)
	}
}

func TestBatchRunPartialSubmissionFailure(t *testing.T) {
	stubSleep(t)

	issuer := newStubIssuer()
	issuer.rejectCNs = []string{"bad.example.org"}
	srv := httptest.NewServer(issuer.handler(t))
	defer srv.Close()

	b, out := newTestBatch(t, srv.URL)
	result, err := b.Run([]HostSpec{
		{CommonName: "one.example.org"},
		{CommonName: "bad.example.org"},
		{CommonName: "two.example.org"},
	})
	require.NoError(t, err)

	// 3 specified / 2 retrieved
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 2, result.Retrieved)

	// the rejected host left nothing on disk
	assert.NoFileExists(t, out.KeyPath("bad.example.org"))
	assert.NoFileExists(t, out.CertPath("bad.example.org"))

	// and its request never progressed past the build phase
	require.Len(t, result.Requests, 3)
	for _, req := range result.Requests {
		if req.CommonName == "bad.example.org" {
			assert.Zero(t, req.EnrollmentID)
			assert.Empty(t, req.KeyPath)
			assert.Empty(t, req.CertPath)
		}
	}
}

func TestBatchRunKeysSurviveFailedRetrieval(t *testing.T) {
	stubSleep(t)

	issuer := newStubIssuer()
	issuer.neverIssue = true
	srv := httptest.NewServer(issuer.handler(t))
	defer srv.Close()

	b, out := newTestBatch(t, srv.URL)
	result, err := b.Run([]HostSpec{{CommonName: "one.example.org"}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Requested)
	assert.Equal(t, 0, result.Retrieved)

	// the key was written at submission time, before retrieval failed
	assert.FileExists(t, out.KeyPath("one.example.org"))
	assert.NoFileExists(t, out.CertPath("one.example.org"))

	require.Len(t, result.Requests, 1)
	assert.Equal(t, out.KeyPath("one.example.org"), result.Requests[0].KeyPath)
	assert.Empty(t, result.Requests[0].CertPath)
}

func TestBatchRunDeduplicates(t *testing.T) {
	stubSleep(t)

	issuer := newStubIssuer()
	srv := httptest.NewServer(issuer.handler(t))
	defer srv.Close()

	b, _ := newTestBatch(t, srv.URL)
	result, err := b.Run([]HostSpec{
		{CommonName: "one.example.org"},
		{CommonName: "one.example.org"},
		{CommonName: "one.example.org", AltNames: []string{"alt.example.org"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Requested)
	assert.Len(t, issuer.submitted, 2)
}

func TestBatchRunBuildFailureIsFatal(t *testing.T) {
	stubSleep(t)

	issuer := newStubIssuer()
	srv := httptest.NewServer(issuer.handler(t))
	defer srv.Close()

	b, _ := newTestBatch(t, srv.URL)
	_, err := b.Run([]HostSpec{
		{CommonName: "one.example.org"},
		{CommonName: ""},
	})

	var ce *CryptoError
	require.ErrorAs(t, err, &ce)
	// nothing was submitted because the build phase aborted the run
	assert.Empty(t, issuer.submitted)
}

func TestBatchRunAuthErrorIsFatal(t *testing.T) {
	stubSleep(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b, _ := newTestBatch(t, srv.URL)
	_, err := b.Run([]HostSpec{{CommonName: "one.example.org"}})

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
}
