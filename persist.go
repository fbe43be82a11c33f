package enroller

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	keyFileMode  = 0600
	certFileMode = 0644

	keyFileSuffix  = ".key"
	certFileSuffix = ".crt"
)

// OutputDir names where keys and certificates land on disk.
type OutputDir struct {
	Dir string
}

// NewOutputDir resolves dir to an absolute path and creates it if needed.
func NewOutputDir(dir string) (*OutputDir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.Wrap(err, "could not create output directory")
	}
	return &OutputDir{Dir: abs}, nil
}

// KeyPath returns the full path of the private key file for commonName.
func (o *OutputDir) KeyPath(commonName string) string {
	return filepath.Join(o.Dir, commonName+keyFileSuffix)
}

// CertPath returns the full path of the certificate file for commonName.
func (o *OutputDir) CertPath(commonName string) string {
	return filepath.Join(o.Dir, commonName+certFileSuffix)
}

// WriteKey persists a private key for commonName and returns the path
// written. An existing key file is relocated first, never overwritten.
func (o *OutputDir) WriteKey(commonName string, keyPEM []byte) (string, error) {
	path := o.KeyPath(commonName)
	if err := writeFileAtomic(path, keyPEM, keyFileMode); err != nil {
		return "", errors.Wrapf(err, "could not write private key for %s", commonName)
	}
	return path, nil
}

// WriteCertificate persists a certificate document for commonName and
// returns the path written. An existing certificate file is relocated
// first, never overwritten.
func (o *OutputDir) WriteCertificate(commonName string, doc []byte) (string, error) {
	path := o.CertPath(commonName)
	if err := writeFileAtomic(path, doc, certFileMode); err != nil {
		return "", errors.Wrapf(err, "could not write certificate for %s", commonName)
	}
	return path, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so an interrupt can never leave a partial file at
// path. A pre-existing file at path is renamed aside beforehand.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(mode)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	if err = relocateExisting(path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	return nil
}

// relocateExisting moves a file at path out of the way under a timestamped
// name so its content survives the upcoming write.
func relocateExisting(path string) error {
	if !fileExists(path) {
		return nil
	}
	return os.Rename(path, fmt.Sprintf("%s.%d.old", path, time.Now().UnixNano()))
}
