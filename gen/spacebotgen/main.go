// Command spacebotgen writes the boilerplate methods for an aggregate's
// events and commands, and its command dispatch.
//
//	spacebotgen events    -id CustomerID -aggregateType membership
//	spacebotgen commands  -id CustomerID -aggregateType membership
//	spacebotgen aggregate -name customer -inFile customer_commands.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/denhac/spacebot/pkg/codegen"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "spacebotgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("expected a subcommand: events, commands or aggregate")
	}

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	pkg := flags.String("package", os.Getenv("GOPACKAGE"), "package of the generated file")
	inFile := flags.String("inFile", os.Getenv("GOFILE"), "file containing the structs")
	outFile := flags.String("outFile", "", "generated file, defaults to <inFile>_gen.go")

	switch args[0] {
	case "events", "commands":
		id := flags.String("id", "", "struct field holding the aggregate id")
		aggregateType := flags.String("aggregateType", "", "aggregate type")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}

		write := codegen.WriteEvents
		if args[0] == "commands" {
			write = codegen.WriteCommands
		}

		return generate(*inFile, defaultOutFile(*outFile, *inFile), func(w io.Writer, names []string) error {
			return write(w, names, *pkg, *id, *aggregateType)
		})

	case "aggregate":
		name := flags.String("name", "", "aggregate name")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}

		if *outFile == "" {
			*outFile = *name + "_aggregate_gen.go"
		}

		return generate(*inFile, *outFile, func(w io.Writer, names []string) error {
			return codegen.WriteAggregate(w, names, *pkg, *name)
		})
	}

	return fmt.Errorf("unknown subcommand %q", args[0])
}

func defaultOutFile(outFile, inFile string) string {
	if outFile != "" {
		return outFile
	}

	return strings.TrimSuffix(inFile, filepath.Ext(inFile)) + "_gen.go"
}

func generate(inPath, outPath string, write func(io.Writer, []string) error) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", inPath, err)
	}

	names, err := codegen.GetStructNames(in)
	_ = in.Close()
	if err != nil {
		return fmt.Errorf("unable to read structs from %s: %w", inPath, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", outPath, err)
	}

	err = write(out, names)
	closeErr := out.Close()
	if err != nil {
		return fmt.Errorf("unable to write %s: %w", outPath, err)
	}

	return closeErr
}
