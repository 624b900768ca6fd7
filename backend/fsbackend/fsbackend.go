// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem.
//
// References are persisted across two coexisting stores: one file per
// reference under the refs directory ("loose"), and a single
// packed-refs text file aggregating many references ("packed"). The
// backend presents a uniform view over both, with the loose value
// winning when a name exists in the two stores
package fsbackend

import (
	"path/filepath"

	"github.com/goabstract/refdb/backend"
	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/config"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// Backend is a Backend implementation that uses the filesystem to
// store references
type Backend struct {
	fs      afero.Fs
	config  *config.Config
	objects backend.ObjectResolver

	// root is the directory holding the refs directory and the
	// packed-refs file. It matches the git directory unless the
	// repository is namespaced
	root string

	cache refCache
}

// New returns a new Backend object for the repository described by
// cfg.
//
// objects is used to resolve the peel target of tag references during
// Compress(). It may be nil when no object database is available, in
// which case nothing can be peeled and unpeeled entries are marked
// unpeelable.
//
// If the repository is namespaced, the namespace directory hierarchy
// is created
func New(cfg *config.Config, objects backend.ObjectResolver) (*Backend, error) {
	b := &Backend{
		fs:      cfg.FS,
		config:  cfg,
		objects: objects,
		root:    ginternals.RefDBRoot(cfg),
	}

	if cfg.Namespace != "" {
		refsPath := ginternals.RefsPath(cfg)
		if err := b.fs.MkdirAll(refsPath, cfg.DirMode()); err != nil {
			return nil, xerrors.Errorf("could not create namespace directory %s: %w", refsPath, err)
		}
	}
	return b, nil
}

// Close frees the resources used by the backend
func (b *Backend) Close() error {
	b.cache.clear()
	return nil
}

// Init initializes the reference database of a repository: the refs
// directory layout, the HEAD reference, and the default config
func (b *Backend) Init() error {
	dirs := []string{
		ginternals.LocalBranchesPath(b.config),
		ginternals.TagsPath(b.config),
	}
	for _, d := range dirs {
		if err := b.fs.MkdirAll(d, b.config.DirMode()); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	head := ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName(ginternals.Master))
	if err := b.writeLooseRef(head); err != nil {
		return xerrors.Errorf("could not write HEAD: %w", err)
	}

	descPath := ginternals.DescriptionFilePath(b.config)
	desc := []byte("Unnamed repository; edit this file 'description' to name the repository.\n")
	if err := afero.WriteFile(b.fs, descPath, desc, b.config.FileMode()); err != nil {
		return xerrors.Errorf("could not create file %s: %w", descPath, err)
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}
	return nil
}

// systemPath returns a path from a ref name
// Ex.: On windows refs/heads/master would return refs\heads\master
func (b *Backend) systemPath(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

// refName returns the UNIX name of the ref stored at the given
// on-disk path
func (b *Backend) refName(path string) (string, error) {
	rel, err := filepath.Rel(b.root, path)
	if err != nil {
		return "", xerrors.Errorf("could not get the name of the ref at %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
