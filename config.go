package enroller

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBase        = "https://cert-manager.example.org/api/ssl/v1"
	defaultRetrieveFormat = "/x509CO"
	defaultContentType    = "application/json;charset=utf-8"
	defaultServerType     = 2
	defaultTerm           = 365
	defaultOutputDir      = "."

	// issuer-side product codes for the two enrollment flavors
	defaultCertTypeSingleDomain = 224
	defaultCertTypeMultiDomain  = 227
)

// Config holds the static settings for one enrollment run. It is loaded
// once at startup and never modified afterwards.
type Config struct {
	ListURL        string `yaml:"listUrl"`
	EnrollURL      string `yaml:"enrollUrl"`
	RetrieveURL    string `yaml:"retrieveUrl"`
	RetrieveFormat string `yaml:"retrieveFormat"`

	OrgID          int `yaml:"orgId"`
	CertTypeSingle int `yaml:"certTypeSingle"`
	CertTypeMulti  int `yaml:"certTypeMulti"`
	ServerType     int `yaml:"serverType"`
	Term           int `yaml:"term"`

	ContentType string `yaml:"contentType"`
	Login       string `yaml:"login"`
	CustomerURI string `yaml:"customerUri"`
	OutputDir   string `yaml:"outputDir"`
}

// DefaultConfig returns a *Config with all non-tenant-specific fields
// set to their default values.
func DefaultConfig() *Config {
	return &Config{
		ListURL:        defaultAPIBase,
		EnrollURL:      defaultAPIBase + "/enroll",
		RetrieveURL:    defaultAPIBase + "/collect/",
		RetrieveFormat: defaultRetrieveFormat,
		CertTypeSingle: defaultCertTypeSingleDomain,
		CertTypeMulti:  defaultCertTypeMultiDomain,
		ServerType:     defaultServerType,
		Term:           defaultTerm,
		ContentType:    defaultContentType,
		OutputDir:      defaultOutputDir,
	}
}

// LoadConfig reads the YAML file at path and overlays it onto the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	cont, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read config file")
	}

	if err = yaml.Unmarshal(cont, cfg); err != nil {
		return nil, errors.Wrap(err, "could not parse config file")
	}

	return cfg, nil
}

// Validate reports the first missing setting required for an enrollment run.
func (c *Config) Validate() error {
	switch {
	case c.ListURL == "":
		return errors.New("listUrl must not be empty")
	case c.EnrollURL == "":
		return errors.New("enrollUrl must not be empty")
	case c.RetrieveURL == "":
		return errors.New("retrieveUrl must not be empty")
	case c.OrgID == 0:
		return errors.New("orgId must be set")
	case c.Login == "":
		return errors.New("login must not be empty")
	case c.CustomerURI == "":
		return errors.New("customerUri must not be empty")
	}
	return nil
}
