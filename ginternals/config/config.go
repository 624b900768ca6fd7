// Package config contains structs to configure the reference
// database of a repository
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// defaultLoadOption contains the params used to load the config file.
//
// Treat this as a const, don't ever change it from a method, even for
// testing.
var defaultLoadOption = ini.LoadOptions{
	SkipUnrecognizableLines: true,
	// git config section and key names are case-insensitive
	Insensitive: true,
}

// Params represents the options that can be set when creating a config
type Params struct {
	// FS represents the file system implementation to use to look for
	// files and directories.
	// Defaults to the regular filesystem
	FS afero.Fs

	// GitDirPath represents the path to the .git directory
	GitDirPath string

	// Namespace contains the refs namespace the database operates in.
	// A namespace containing a / expands to a hierarchy of namespaces:
	// "foo/bar" stores refs under refs/namespaces/foo/refs/namespaces/bar/
	Namespace string
}

// Config represents the config of a repository
type Config struct {
	// FS represents the file system implementation used to look for
	// files and directories
	FS afero.Fs

	// GitDirPath represents the path to the .git directory
	GitDirPath string

	// Namespace contains the refs namespace the database operates in
	Namespace string

	fileMode os.FileMode
	dirMode  os.FileMode
}

// LoadConfig returns the Config of the repository at p.GitDirPath.
// The repository's config file is read if it exists; a missing file
// falls back on the defaults
func LoadConfig(p Params) (*Config, error) {
	fs := p.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfg := &Config{
		FS:         fs,
		GitDirPath: p.GitDirPath,
		Namespace:  p.Namespace,
		fileMode:   0o644,
		dirMode:    0o755,
	}

	configPath := filepath.Join(p.GitDirPath, "config")
	data, err := afero.ReadFile(fs, configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, xerrors.Errorf("could not read %s: %w", configPath, err)
	}

	f, err := ini.LoadSources(defaultLoadOption, data)
	if err != nil {
		return nil, xerrors.Errorf("could not parse %s: %w", configPath, err)
	}

	// https://git-scm.com/docs/git-config#Documentation/git-config.txt-coresharedRepository
	switch strings.ToLower(f.Section("core").Key("sharedrepository").String()) {
	case "group", "true", "1":
		cfg.fileMode = 0o664
		cfg.dirMode = 0o775
	case "all", "world", "everybody", "2":
		cfg.fileMode = 0o666
		cfg.dirMode = 0o777
	}
	return cfg, nil
}

// FileMode returns the mode new files of the repository should be
// created with
func (cfg *Config) FileMode() os.FileMode {
	return cfg.fileMode
}

// DirMode returns the mode new directories of the repository should
// be created with
func (cfg *Config) DirMode() os.FileMode {
	return cfg.dirMode
}
