package main

import (
	"fmt"
	"time"

	"github.com/skeema/mybase"
	"github.com/skeema/tablecheck/internal/topology"
	"github.com/skeema/tablecheck/internal/util"
)

// addScopeOptions adds the options controlling which hosts and wikis a
// command operates on, and how to reach them.
func addScopeOptions(cmd *mybase.Command) {
	cmd.AddOption(mybase.StringOption("wikilist", 'w', "", "Comma-separated list of wikis to check; overrides --wikifile"))
	cmd.AddOption(mybase.StringOption("wikifile", 'f', "all.dblist", "Path to dblist file of wikis to check"))
	cmd.AddOption(mybase.StringOption("dbhosts", 'd', "", "Comma-separated list of database hosts to check; default is every host in --dbconfig"))
	cmd.AddOption(mybase.StringOption("dbconfig", 0, "", "Path to JSON dump of $wgLBFactoryConf"))
	cmd.AddOption(mybase.StringOption("dbconfig-command", 0, "", "Shell command printing JSON dump of $wgLBFactoryConf; may contain {WIKI}"))
	cmd.AddOption(mybase.StringOption("creds-command", 0, "", "Shell command printing JSON with wgDBuser and wgDBpassword; may contain {WIKI}"))
	cmd.AddOption(mybase.StringOption("masters", 0, "", "Comma-separated section=host pairs overriding each section's master"))
	cmd.AddOption(mybase.StringOption("command-timeout", 0, "60s", "Maximum run time of --dbconfig-command and --creds-command"))
}

// runConfig is the parsed form of the options added by addScopeOptions.
type runConfig struct {
	Scope          *topology.Scope
	User           string
	Password       string
	commandWiki    string
	commandTimeout time.Duration
}

// wikiList returns the requested wikis: from --wikilist if supplied,
// otherwise from the --wikifile dblist.
func wikiList(cfg *mybase.Config) ([]string, error) {
	if cfg.Changed("wikilist") {
		return topology.Dedupe(cfg.GetSlice("wikilist", ',', false)), nil
	}
	wikis, err := topology.ReadDBList(cfg.Get("wikifile"))
	if err != nil {
		return nil, NewExitValue(CodeNoInput, "Unable to read wiki list: %s", err)
	}
	return wikis, nil
}

// loadRunConfig resolves wikis, topology, host scope and credentials. The
// commandWiki is passed to shell commands as {WIKI}; if blank, the first
// requested wiki is used.
func loadRunConfig(cfg *mybase.Config, commandWiki string) (*runConfig, error) {
	wikis, err := wikiList(cfg)
	if err != nil {
		return nil, err
	}
	if len(wikis) == 0 {
		return nil, NewExitValue(CodeBadConfig, "No wikis to check: supply --wikilist or a non-empty --wikifile")
	}
	rc := &runConfig{commandWiki: commandWiki}
	if rc.commandWiki == "" {
		rc.commandWiki = wikis[0]
	}
	if rc.commandTimeout, err = time.ParseDuration(cfg.Get("command-timeout")); err != nil {
		return nil, NewExitValue(CodeBadConfig, "Invalid value for --command-timeout: %s", err)
	}

	topo, err := rc.loadTopology(cfg)
	if err != nil {
		return nil, err
	}
	domain := cfg.Get("domain")
	var hosts []string
	for _, host := range cfg.GetSlice("dbhosts", ',', false) {
		hosts = append(hosts, topology.Qualify(host, domain))
	}
	if topo.Empty() && len(hosts) == 0 {
		return nil, NewExitValue(CodeBadConfig, "No database hosts: supply --dbhosts, --dbconfig, or --dbconfig-command")
	}
	rc.Scope = &topology.Scope{
		Topology: topo,
		Hosts:    hosts,
		Wikis:    wikis,
	}
	if cfg.Changed("masters") {
		em, err := topology.ParseExplicitMasters(cfg.GetSlice("masters", ',', false), topology.FirstListed{})
		if err != nil {
			return nil, WrapExitCode(CodeBadConfig, err)
		}
		for section, host := range em.Masters {
			em.Masters[section] = topology.Qualify(host, domain)
		}
		rc.Scope.Policy = em
	}
	return rc, nil
}

func (rc *runConfig) loadTopology(cfg *mybase.Config) (*topology.Topology, error) {
	domain := cfg.Get("domain")
	var topo *topology.Topology
	var err error
	if path := cfg.Get("dbconfig"); path != "" {
		topo, err = topology.ReadConfigFile(path, domain)
	} else if command := cfg.Get("dbconfig-command"); command != "" {
		topo, err = topology.RunConfigCommand(command, rc.commandWiki, domain, rc.commandTimeout)
	} else {
		return &topology.Topology{}, nil
	}
	if err != nil {
		return nil, NewExitValue(CodeBadConfig, "Unable to load database configuration: %s", err)
	}
	return topo, nil
}

// loadCredentials determines the user and password, either from options or
// from --creds-command.
func (rc *runConfig) loadCredentials(cfg *mybase.Config) error {
	if command := cfg.Get("creds-command"); command != "" {
		creds, err := topology.RunCredsCommand(command, rc.commandWiki, rc.commandTimeout)
		if err != nil {
			return NewExitValue(CodeBadConfig, "Unable to obtain database credentials: %s", err)
		}
		rc.User, rc.Password = creds.User, creds.Password
		return nil
	}
	rc.User = cfg.Get("user")
	if rc.User == "" {
		return NewExitValue(CodeBadConfig, "No database credentials: supply --user or --creds-command")
	}
	rc.Password = util.Password(cfg)
	return nil
}

func (rc *runConfig) String() string {
	return fmt.Sprintf("%d hosts, %d wikis", len(rc.Scope.ListHosts()), len(rc.Scope.Wikis))
}
