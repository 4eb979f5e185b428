package main

import (
	"fmt"
	"os"
)

const usage = `adorn - API contract generator

Usage:
  adorn <command> [arguments]

Commands:
  init          Initialize a new adorn project (creates adorn.ini)
  build         Scan controllers and write the contract artifacts
  watch         Rebuild automatically when source files change
  preview       Serve the generated artifacts over HTTP
  entity        Print the schema derived from database tables
  clean         Remove generated artifacts and the build cache

Options:
  -h, --help    Show this help message

Run 'adorn <command> --help' for more information on a specific command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]

	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
		os.Exit(0)

	case "init":
		initCmd(os.Args[2:])

	case "build":
		buildCmd(os.Args[2:])

	case "watch":
		watchCmd(os.Args[2:])

	case "preview":
		previewCmd(os.Args[2:])

	case "entity":
		entityCmd(os.Args[2:])

	case "clean":
		cleanCmd(os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'adorn --help' for usage.")
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
