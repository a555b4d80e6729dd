package main

import (
	"errors"
	"io"
	"os"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/mybase"
	"github.com/skeema/tablecheck/internal/audit"
	"github.com/skeema/tablecheck/internal/collect"
	"github.com/skeema/tablecheck/internal/tablediff"
	"github.com/skeema/tablecheck/internal/topology"
	"github.com/skeema/tablecheck/internal/util"
)

// reportOutput receives the drift report. Tests redirect it.
var reportOutput io.Writer = os.Stdout

func init() {
	summary := "Compare table definitions across database hosts"
	desc := "Reads the CREATE TABLE statement of each requested table, for each requested " +
		"wiki, from every database host serving that wiki. Each replica's tables are then " +
		"compared against those of its section's master, and any differences in columns, " +
		"keys, or table parameters are reported. Hosts with identical definitions are " +
		"grouped, and only one host per group is compared.\n\n" +
		"With --master and --main-wiki, every wiki on every host is instead compared against " +
		"the tables of one wiki on one host, even across sections.\n\n" +
		"Differences do not affect the exit code: 0 is returned for any completed run. " +
		"An exit code of 64 or higher indicates a usage or configuration problem, and 2 " +
		"indicates no hosts could be reached."

	cmd := mybase.NewCommand("check", summary, desc, CheckHandler)
	addScopeOptions(cmd)
	cmd.AddOption(mybase.StringOption("tables", 't', "", "Comma-separated list of tables to check (required)"))
	cmd.AddOption(mybase.StringOption("master", 'm', "", "Host whose --main-wiki tables are the baseline for all wikis everywhere"))
	cmd.AddOption(mybase.StringOption("main-wiki", 0, "", "Wiki on --master whose tables are the baseline"))
	cmd.AddOption(mybase.StringOption("params-ignore", 0, "AUTO_INCREMENT,DEFAULT,AVG_ROW_LENGTH", "Table parameters ignored when grouping hosts with identical tables"))
	cmd.AddOption(mybase.StringOption("diff-ignore-params", 0, "AUTO_INCREMENT,DEFAULT", "Table parameters whose value differences are not reported"))
	cmd.AddOption(mybase.StringOption("delay", 0, "50ms", "Pause between successive queries on the same host"))
	cmd.AddOption(mybase.BoolOption("dry-run", 0, false, "Show which wikis would be checked on which hosts, without connecting"))
	cmd.AddOption(mybase.BoolOption("verbose", 'v', false, "Describe baseline table structures before their differences"))
	cmd.AddOption(mybase.BoolOption("show-ddl", 0, false, "Follow differences with a unified diff of the CREATE TABLE statements"))
	cmd.AddOption(mybase.BoolOption("show-ignored", 0, false, "Also report value differences in --diff-ignore-params"))
	cmd.AddOption(mybase.BoolOption("last-mismatch-only", 0, false, "Report only the last mismatched column of each table").Hidden())
	CommandSuite.AddSubCommand(cmd)
}

// CheckHandler is the handler method for `tablecheck check`
func CheckHandler(cfg *mybase.Config) error {
	tables := topology.Dedupe(cfg.GetSlice("tables", ',', false))
	if len(tables) == 0 {
		return NewExitValue(CodeBadUsage, "Option --tables is required")
	}
	master, mainWiki := cfg.Get("master"), cfg.Get("main-wiki")
	if (master == "") != (mainWiki == "") {
		return NewExitValue(CodeBadUsage, "Options --master and --main-wiki must be used together")
	}
	delay, err := time.ParseDuration(cfg.Get("delay"))
	if err != nil || delay < 0 {
		return NewExitValue(CodeBadConfig, "Invalid value for --delay: %q", cfg.Get("delay"))
	}

	rc, err := loadRunConfig(cfg, mainWiki)
	if err != nil {
		return err
	}
	if master != "" {
		master = topology.Qualify(master, cfg.Get("domain"))
		rc.includeBaseline(master, mainWiki)
	}
	log.Debugf("Checking %d tables: %s", len(tables), rc)

	if cfg.GetBool("dry-run") {
		if collect.Plan(reportOutput, rc.Scope, tables) == 0 {
			log.Warn("No hosts serve any of the requested wikis")
		}
		return nil
	}

	if err := rc.loadCredentials(cfg); err != nil {
		return err
	}
	connector, err := newConnector(cfg, rc, delay)
	if err != nil {
		return err
	}
	collector := &collect.Collector{
		Source:    rc.Scope,
		Connector: connector,
		Tables:    tables,
		Out:       reportOutput,
	}
	matrix, stats, err := collector.Collect()
	util.CloseCachedConnectionPools()
	log.Infof("Collection complete: %s", stats)
	if err != nil {
		return WrapExitCode(CodeFatalError, err)
	}

	auditor := &audit.Auditor{
		Scope:       rc.Scope,
		Matrix:      matrix,
		Tables:      tables,
		GroupIgnore: cfg.GetSlice("params-ignore", ',', false),
		Options: tablediff.Options{
			ValueIgnore:      cfg.GetSlice("diff-ignore-params", ',', false),
			IncludeIgnored:   cfg.GetBool("show-ignored"),
			LastMismatchOnly: cfg.GetBool("last-mismatch-only"),
		},
		Verbose:   cfg.GetBool("verbose"),
		ShowDDL:   cfg.GetBool("show-ddl"),
		WrapWidth: util.OutputWidth(reportOutput),
		Out:       reportOutput,
	}

	var result audit.Summary
	if master != "" {
		result, err = auditor.RunGlobal(master, mainWiki)
		if errors.Is(err, audit.ErrBaselineMissing) {
			return WrapExitCode(CodeFatalError, err)
		}
	} else {
		result = auditor.RunPerShard()
	}
	log.Infof("Audit complete: %s", result)
	return nil
}

// includeBaseline ensures the global baseline cell is collected, even if
// master or mainWiki were not otherwise requested.
func (rc *runConfig) includeBaseline(master, mainWiki string) {
	if !slices.Contains(rc.Scope.Wikis, mainWiki) {
		rc.Scope.Wikis = append(rc.Scope.Wikis, mainWiki)
	}
	if len(rc.Scope.Hosts) > 0 && !slices.Contains(rc.Scope.Hosts, master) {
		rc.Scope.Hosts = append(rc.Scope.Hosts, master)
	}
}
