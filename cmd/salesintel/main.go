package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "--help", "-h", "help":
		showUsage()
		return
	case "run":
		err = runAgent(args, os.Stdout)
	case "market":
		err = runMarket(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "serve":
		err = runServe(args)
	case "encrypt":
		err = runEncrypt(args, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'salesintel --help' for usage information.\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`salesintel - sales intelligence agents and market research

USAGE:
    salesintel COMMAND [FLAGS] [ARGS]

COMMANDS:
    run AGENT [OPERATION]   Run one agent invocation and print the result
    market                  Produce a market intelligence report
    status                  List agents, their operations and recent runs
    serve                   Start the HTTP API and the scheduler
    encrypt VALUE           Encrypt a secret for use as an "enc:" config value

COMMON FLAGS:
    --config PATH      Config file (default: ./salesintel.yaml)
    --json             Print raw JSON instead of a summary

AGENTS:
    backup-agent, audit-agent, prospect-qualification-optimizer,
    deal-value-optimizer, sales-materials-optimizer

CONFIGURATION:
    SALESINTEL_* variables override the config file.
    SALESINTEL_CONFIG_KEY decrypts "enc:" values.

EXAMPLES:
    salesintel run --priority critical backup-agent safety_backup
    salesintel run --context business_case_minutes=420 deal-value-optimizer
    salesintel market --product "Pipeline IQ" --industry SaaS --target mid-market
    salesintel serve --config /etc/salesintel.yaml`)
}
