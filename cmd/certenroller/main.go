package main

import (
	"fmt"
	"os"
	"strings"

	enroller "github.com/KaiserWerk/CertEnroller-Go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type options struct {
	hostname string
	hostFile string
	altNames []string
	outDir   string
	userCert string
	userKey  string
	login    string
	cfgFile  string
	testOnly bool
	debug    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("run failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "certenroller",
		Short:         "Bulk X.509 certificate enrollment against a certificate-management service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnroll(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.hostname, "hostname", "n", "", "common name of a single host to enroll")
	cmd.Flags().StringVarP(&opts.hostFile, "hostfile", "f", "", "file with one host per line: common name followed by SANs")
	cmd.Flags().StringArrayVarP(&opts.altNames, "altname", "a", nil, "subject alternative name for --hostname, repeatable")
	cmd.Flags().StringVarP(&opts.outDir, "outdir", "d", "", "directory for key and certificate files")
	cmd.Flags().StringVar(&opts.userCert, "usercert", "", "path to the user certificate (PEM)")
	cmd.Flags().StringVar(&opts.userKey, "userkey", "", "path to the user private key (PEM)")
	cmd.Flags().StringVarP(&opts.login, "login", "u", "", "username sent in the login header")
	cmd.Flags().StringVarP(&opts.cfgFile, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().BoolVarP(&opts.testOnly, "test", "t", false, "only test connectivity to the issuer, enroll nothing")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	// accept underscores in flag names for compatibility with older scripts
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	return cmd
}

func runEnroll(opts *options) error {
	if opts.debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	certFile, keyFile, err := enroller.ResolveUserCredentials(opts.userCert, opts.userKey)
	if err != nil {
		return err
	}
	log.Debugf("using user certificate %s", certFile)

	transport, err := enroller.NewMutualTLSTransport(certFile, keyFile)
	if err != nil {
		return err
	}

	client := enroller.NewClient(cfg, &enroller.ClientSettings{Transport: transport})

	if opts.testOnly {
		if err = client.Ping(); err != nil {
			return err
		}
		log.Info("connectivity test passed")
		return nil
	}

	hosts, err := collectHosts(opts)
	if err != nil {
		return err
	}

	output, err := enroller.NewOutputDir(cfg.OutputDir)
	if err != nil {
		return err
	}

	result, err := enroller.NewBatch(client, output).Run(hosts)
	if err != nil {
		return err
	}

	log.Infof("%d certificate(s) specified / %d retrieved", result.Requested, result.Retrieved)
	return nil
}

func loadConfig(opts *options) (*enroller.Config, error) {
	var cfg *enroller.Config
	var err error

	if opts.cfgFile != "" {
		cfg, err = enroller.LoadConfig(opts.cfgFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = enroller.DefaultConfig()
	}

	if opts.login != "" {
		cfg.Login = opts.login
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func collectHosts(opts *options) ([]enroller.HostSpec, error) {
	var hosts []enroller.HostSpec

	if spec, ok := enroller.ParseHostLine(opts.hostname); ok {
		spec.AltNames = appendUnique(spec.AltNames, opts.altNames)
		hosts = append(hosts, spec)
	} else if len(opts.altNames) > 0 {
		return nil, fmt.Errorf("--altname requires --hostname")
	}

	if opts.hostFile != "" {
		fromFile, err := enroller.ReadHostsFile(opts.hostFile)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, fromFile...)
	}

	if len(hosts) == 0 {
		return nil, enroller.ErrNoHosts
	}

	return hosts, nil
}

func appendUnique(dst, src []string) []string {
	for _, s := range src {
		if !enroller.StringSliceContains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}
