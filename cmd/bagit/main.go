// Command bagit creates and validates BagIt packages from the command
// line, the same thin-wrapper shape as bendo's cmd/butil.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ndlib/bagit"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)

	// Only a malformed invocation is a usage error (exit 2); every
	// validation or IO failure reaching here — a bad bag, a missing
	// directory, an unreadable file — is exit 1.
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		usage()
		os.Exit(2)
	}
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bagit create [-checksum alg]... [-processes n] DIR")
	fmt.Fprintln(os.Stderr, "       bagit validate [-fast] [-completeness-only] [-processes n] DIR")
}

// usageError marks a command-line invocation problem, distinct from an
// operational (IO, validation) failure, so main can map it to exit 2
// instead of exit 1.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	var checksums stringList
	fs.Var(&checksums, "checksum", "checksum algorithm to compute (repeatable)")
	processes := fs.Int("processes", 1, "number of files to hash concurrently")
	agent := fs.String("agent", "", "value for Bag-Software-Agent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return newUsageError("create requires exactly one directory argument")
	}

	bag, err := bagit.MakeBag(context.Background(), fs.Arg(0), bagit.BuildOptions{
		Checksums:     checksums,
		Processes:     *processes,
		SoftwareAgent: *agent,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: created bag version %s\n", bag.Root(), bag.Version())
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fast := fs.Bool("fast", false, "check only the Payload-Oxum, without reading file contents")
	completenessOnly := fs.Bool("completeness-only", false, "check only that the manifested and on-disk file sets agree")
	processes := fs.Int("processes", 1, "number of files to hash concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return newUsageError("validate requires exactly one directory argument")
	}
	dir := fs.Arg(0)

	bag, err := bagit.Load(dir)
	if err != nil {
		return err
	}

	err = bag.Validate(context.Background(), bagit.ValidateOptions{
		Fast:             *fast,
		CompletenessOnly: *completenessOnly,
		Processes:        *processes,
	})

	var bagErr *bagit.BagError
	if err == nil {
		fmt.Printf("%s: valid\n", dir)
		return nil
	}
	if errors.As(err, &bagErr) && bagErr.Kind == bagit.ErrValidation {
		fmt.Printf("%s: invalid\n", dir)
		for _, d := range bagErr.Details {
			fmt.Println(" ", d.String())
		}
		return bagErr
	}
	return err
}
