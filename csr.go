package enroller

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
)

const (
	keyBits = 2048

	pemBlockCSR        = "CERTIFICATE REQUEST"
	pemBlockPrivateKey = "RSA PRIVATE KEY"
)

// BuildCertificateRequest generates a fresh key pair and a CSR whose subject
// common name is exactly commonName and whose SAN extension, if altNames is
// non-empty, lists exactly those names in the order given.
func BuildCertificateRequest(commonName string, altNames []string) (*CertificateRequest, error) {
	if commonName == "" {
		return nil, &CryptoError{Subject: commonName, Err: errors.New("common name must not be empty")}
	}

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, &CryptoError{Subject: commonName, Err: err}
	}

	tpl := x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: commonName},
		DNSNames:           altNames,
		SignatureAlgorithm: x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &tpl, key)
	if err != nil {
		return nil, &CryptoError{Subject: commonName, Err: err}
	}

	return &CertificateRequest{
		CommonName: commonName,
		AltNames:   altNames,
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: pemBlockPrivateKey, Bytes: x509.MarshalPKCS1PrivateKey(key)}),
		CSR:        pem.EncodeToMemory(&pem.Block{Type: pemBlockCSR, Bytes: der}),
	}, nil
}
