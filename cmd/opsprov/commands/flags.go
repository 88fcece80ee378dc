package commands

import (
	"github.com/spf13/pflag"

	"github.com/imamik/opsprov/internal/config"
)

// runFlags binds the run configuration flags. Values start at the built-in
// defaults so --help shows them; only flags given on the command line are
// copied onto the loaded configuration.
type runFlags struct {
	values config.RunConfig
	copies map[string]func(dst, src *config.RunConfig)
}

func bindRunFlags(fs *pflag.FlagSet) *runFlags {
	f := &runFlags{
		values: *config.Default(),
		copies: make(map[string]func(dst, src *config.RunConfig)),
	}
	v := &f.values

	fs.StringVarP(&v.InputFile, "file", "f", v.InputFile, "CSV file of instance_name,agent_rules rows")
	f.copy("file", func(d, s *config.RunConfig) { d.InputFile = s.InputFile })

	fs.IntVar(&v.MaxWorkers, "max-workers", v.MaxWorkers, "Maximum number of instances provisioned concurrently")
	f.copy("max-workers", func(d, s *config.RunConfig) { d.MaxWorkers = s.MaxWorkers })

	fs.IntVar(&v.MaxRetries, "max-retries", v.MaxRetries, "Retries after the first attempt for transient failures")
	f.copy("max-retries", func(d, s *config.RunConfig) { d.MaxRetries = s.MaxRetries })

	fs.BoolVar(&v.Force, "force", v.Force, "Re-provision instances already recorded as SUCCESS")
	f.copy("force", func(d, s *config.RunConfig) { d.Force = s.Force })

	fs.StringVar(&v.Provider, "provider", v.Provider, "Command transport: local-cli, direct-ssh or mock")
	f.copy("provider", func(d, s *config.RunConfig) { d.Provider = s.Provider })

	fs.BoolVar(&v.DryRun, "dry-run", v.DryRun, "Run against the mock provider without touching any instance")
	f.copy("dry-run", func(d, s *config.RunConfig) { d.DryRun = s.DryRun })

	fs.StringVar(&v.SSHUser, "ssh-user", v.SSHUser, "Remote user for the direct-ssh provider")
	f.copy("ssh-user", func(d, s *config.RunConfig) { d.SSHUser = s.SSHUser })

	fs.StringVar(&v.SSHKey, "ssh-key", v.SSHKey, "Private key file for the direct-ssh provider")
	f.copy("ssh-key", func(d, s *config.RunConfig) { d.SSHKey = s.SSHKey })

	fs.IntVar(&v.SSHPort, "ssh-port", v.SSHPort, "SSH port for the direct-ssh provider")
	f.copy("ssh-port", func(d, s *config.RunConfig) { d.SSHPort = s.SSHPort })

	fs.StringVar(&v.SSHHostSource, "ssh-host-source", v.SSHHostSource, "How direct-ssh finds a host: name, template or hcloud (hcloud matches the server name only)")
	f.copy("ssh-host-source", func(d, s *config.RunConfig) { d.SSHHostSource = s.SSHHostSource })

	fs.StringVar(&v.SSHHostTemplate, "ssh-host-template", v.SSHHostTemplate, "Go template for the host, e.g. {{.Name}}.{{.Zone}}.c.{{.Project}}.internal")
	f.copy("ssh-host-template", func(d, s *config.RunConfig) { d.SSHHostTemplate = s.SSHHostTemplate })

	fs.StringVar(&v.GcloudPath, "gcloud-path", v.GcloudPath, "gcloud binary used by the local-cli provider")
	f.copy("gcloud-path", func(d, s *config.RunConfig) { d.GcloudPath = s.GcloudPath })

	fs.BoolVar(&v.IAPTunnel, "iap-tunnel", v.IAPTunnel, "Pass --tunnel-through-iap to gcloud compute ssh")
	f.copy("iap-tunnel", func(d, s *config.RunConfig) { d.IAPTunnel = s.IAPTunnel })

	fs.StringVar(&v.StateFile, "state-file", v.StateFile, "State file recording the outcome per instance")
	f.copy("state-file", func(d, s *config.RunConfig) { d.StateFile = s.StateFile })

	fs.StringVar(&v.LogRoot, "log-root", v.LogRoot, "Directory under which each run creates its log directory")
	f.copy("log-root", func(d, s *config.RunConfig) { d.LogRoot = s.LogRoot })

	fs.StringVar(&v.MetricsFile, "metrics-file", v.MetricsFile, "Write run metrics in Prometheus text format to this file")
	f.copy("metrics-file", func(d, s *config.RunConfig) { d.MetricsFile = s.MetricsFile })

	fs.DurationVar(&v.CommandTimeout, "command-timeout", v.CommandTimeout, "Hard limit for a single remote command")
	f.copy("command-timeout", func(d, s *config.RunConfig) { d.CommandTimeout = s.CommandTimeout })

	fs.StringVar(&v.RemoteState.Bucket, "remote-bucket", v.RemoteState.Bucket, "S3 bucket mirroring the state file")
	f.copy("remote-bucket", func(d, s *config.RunConfig) { d.RemoteState.Bucket = s.RemoteState.Bucket })

	fs.StringVar(&v.RemoteState.Key, "remote-key", v.RemoteState.Key, "Object key of the mirrored state file (default: "+config.DefaultRemoteKey+")")
	f.copy("remote-key", func(d, s *config.RunConfig) { d.RemoteState.Key = s.RemoteState.Key })

	fs.StringVar(&v.RemoteState.Endpoint, "remote-endpoint", v.RemoteState.Endpoint, "S3-compatible endpoint URL")
	f.copy("remote-endpoint", func(d, s *config.RunConfig) { d.RemoteState.Endpoint = s.RemoteState.Endpoint })

	fs.StringVar(&v.RemoteState.Region, "remote-region", v.RemoteState.Region, "Region of the state bucket")
	f.copy("remote-region", func(d, s *config.RunConfig) { d.RemoteState.Region = s.RemoteState.Region })

	fs.BoolVarP(&v.Verbose, "verbose", "v", v.Verbose, "Log every executed step")
	f.copy("verbose", func(d, s *config.RunConfig) { d.Verbose = s.Verbose })

	return f
}

func (f *runFlags) copy(name string, fn func(dst, src *config.RunConfig)) {
	f.copies[name] = fn
}

// overrides returns a function applying the flags that were set in fs.
func (f *runFlags) overrides(fs *pflag.FlagSet) func(*config.RunConfig) {
	return func(cfg *config.RunConfig) {
		fs.Visit(func(fl *pflag.Flag) {
			if fn, ok := f.copies[fl.Name]; ok {
				fn(cfg, &f.values)
			}
		})
	}
}
