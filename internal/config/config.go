// Package config loads caller-side defaults for batch bagit operations.
// The engine package itself never reads configuration files, the same
// separation bendo draws between its server config and its storage
// engine. cmd/bagit does not use this package either: it takes its
// settings from command-line flags.
package config

import (
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Options holds the settings a batch CLI run needs beyond what a single
// MakeBag/Validate call takes as arguments.
type Options struct {
	ChecksumAlgorithms []string `toml:"checksum_algorithms"`
	Processes          int      `toml:"processes"`
	LogLevel           string   `toml:"log_level"`
	SoftwareAgent      string   `toml:"software_agent"`
}

// Defaults returns the settings used when no config file is given.
func Defaults() Options {
	return Options{
		ChecksumAlgorithms: []string{"sha512"},
		Processes:          runtime.NumCPU(),
		LogLevel:           "info",
		SoftwareAgent:      "bagit-go/1.0",
	}
}

// Load reads a TOML config file, starting from Defaults and overwriting
// whatever the file declares.
func Load(path string) (Options, error) {
	opts := Defaults()
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return Options{}, errors.Wrapf(err, "loading config %s", path)
	}
	return opts, nil
}
