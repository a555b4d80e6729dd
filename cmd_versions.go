package main

import (
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/mybase"
	"github.com/skeema/tablecheck/internal/dbhost"
)

func init() {
	summary := "Report the server flavor of each database host"
	desc := "Connects to each database host in scope and reports its vendor and version. " +
		"Hosts of different flavor families may render SHOW CREATE TABLE differently, " +
		"which `tablecheck check` would report as drift; a warning is logged for each " +
		"section whose hosts span more than one family.\n\n" +
		"An exit code of 0 is returned if at least one host could be reached."

	cmd := mybase.NewCommand("versions", summary, desc, VersionsHandler)
	addScopeOptions(cmd)
	CommandSuite.AddSubCommand(cmd)
}

// flavorReporter is satisfied by sessions able to identify their server's
// flavor directly.
type flavorReporter interface {
	Flavor() (dbhost.Flavor, error)
}

// VersionsHandler is the handler method for `tablecheck versions`
func VersionsHandler(cfg *mybase.Config) error {
	rc, err := loadRunConfig(cfg, "")
	if err != nil {
		return err
	}
	if err := rc.loadCredentials(cfg); err != nil {
		return err
	}
	connector, err := newConnector(cfg, rc, 0)
	if err != nil {
		return err
	}

	flavors := make(map[string]dbhost.Flavor)
	for _, host := range rc.Scope.ListHosts() {
		sess, err := connector.Connect(host)
		if err != nil {
			log.Warnf("Skipping %s: %s", host, err)
			continue
		}
		var fl dbhost.Flavor
		if fr, ok := sess.(flavorReporter); ok {
			fl, err = fr.Flavor()
		} else {
			var version string
			version, err = sess.ServerVersion()
			fl = dbhost.IdentifyFlavor(version, "")
		}
		sess.Close()
		if err != nil {
			log.Warnf("Unable to determine flavor of %s: %s", host, err)
			continue
		}
		flavors[host] = fl
		fmt.Fprintf(reportOutput, "dbhost: %s flavor: %s\n", host, fl)
	}
	if len(flavors) == 0 {
		return NewExitValue(CodeFatalError, "No database hosts could be reached")
	}

	for _, section := range rc.Scope.Topology.Sections {
		var families []dbhost.Flavor
		for _, host := range section.Hosts {
			if fl, ok := flavors[host]; ok && fl.Known() && !slices.Contains(families, fl.Family()) {
				families = append(families, fl.Family())
			}
		}
		if len(families) > 1 {
			log.Warnf("Section %s has hosts of %d different flavor families: %v", section.Name, len(families), families)
		}
	}
	return nil
}
