package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "run":
		err = runCommand(os.Args[2:])
	case "check":
		err = checkCommand(os.Args[2:])
	case "export":
		err = exportCommand(os.Args[2:])
	case "runs":
		err = runsCommand(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	usage := `hydronet - hydraulic network simulation from geographic snapshots

Usage:
  hydronet <command> [options]

Available Commands:
  run         Build a model from a snapshot and simulate it
  check       Build and validate a model without simulating
  export      Write a validated model as an EPANET INP file
  runs        List runs archived in a result store
  help        Show this help message
  version     Show version information

Use "hydronet <command> --help" for more information about a command.
`
	fmt.Print(usage)
}

func printVersion() {
	fmt.Println("hydronet v1.0.0")
}
