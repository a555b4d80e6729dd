package main

import (
	"os"

	"github.com/skeema/mybase"
	"github.com/skeema/tablecheck/internal/util"
)

const version = "1.0.0"

const rootDesc = `tablecheck compares the live table definitions of sharded MediaWiki databases
across every database host serving them, and reports drift from each shard's
master (or from a single designated baseline).`

// CommandSuite is the root command. Subcommands register themselves in init.
var CommandSuite = mybase.NewCommandSuite("tablecheck", version, rootDesc)

func main() {
	defer panicHandler()
	util.AddGlobalOptions(CommandSuite)

	cfg, err := mybase.ParseCLI(CommandSuite, os.Args)
	if err != nil {
		Exit(WrapExitCode(CodeBadUsage, err))
	}
	util.AddGlobalConfigFiles(cfg)
	if err := util.ProcessSpecialGlobalOptions(cfg); err != nil {
		Exit(WrapExitCode(CodeBadConfig, err))
	}
	Exit(cfg.HandleCommand())
}
