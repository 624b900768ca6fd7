package main

import (
	"os"

	"github.com/goabstract/refdb/backend/fsbackend"
	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/config"
	"github.com/goabstract/refdb/ginternals/githash"
)

// loadBackend opens the reference database described by the global
// flags.
// No object database is wired in, so pack-refs marks what it cannot
// classify as unpeelable
func loadBackend(opts *options) (*fsbackend.Backend, error) {
	gitDir := opts.GitDir
	if gitDir == "" {
		gitDir = os.Getenv("GIT_DIR")
	}
	if gitDir == "" {
		gitDir = ".git"
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = os.Getenv("GIT_NAMESPACE")
	}

	cfg, err := config.LoadConfig(config.Params{
		GitDirPath: gitDir,
		Namespace:  namespace,
	})
	if err != nil {
		return nil, err
	}
	return fsbackend.New(cfg, nil)
}

// newReference builds a reference from a command-line target: either
// a 40-hex oid or, with symbolic set, the name of another reference
func newReference(name, target string, symbolic bool) (*ginternals.Reference, error) {
	if symbolic {
		return ginternals.NewSymbolicReference(name, target), nil
	}
	oid, err := githash.NewOidFromStr(target)
	if err != nil {
		return nil, err
	}
	return ginternals.NewReference(name, oid), nil
}
