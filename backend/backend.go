// Package backend contains interfaces and implementations to store
// and retrieve references
package backend

import (
	"errors"

	"github.com/goabstract/refdb/ginternals"
)

// Backend represents an object that can store and retrieve references
type Backend interface {
	// Close free the resources
	Close() error

	// Init initializes the reference database of a repository
	Init() error

	// Exists checks whether a reference exists, either as a loose
	// file or in the packed-refs file
	Exists(name string) (bool, error)
	// Reference returns a stored reference from its name.
	// Symbolic references are returned as-is, without being followed.
	// ErrRefNotFound is returned if the reference doesn't exists
	Reference(name string) (*ginternals.Reference, error)
	// ResolveReference returns the reference name resolves to,
	// following symbolic references
	ResolveReference(name string) (*ginternals.Reference, error)
	// WriteReference writes the given reference in the db. If the
	// reference already exists it will be overwritten
	WriteReference(ref *ginternals.Reference) error
	// WriteReferenceSafe writes the given reference in the db
	// ErrRefExists is returned if the reference already exists
	WriteReferenceSafe(ref *ginternals.Reference) error
	// DeleteReference removes a reference from both the loose files
	// and the packed-refs file.
	// ErrRefNotFound is returned if the reference existed in neither
	DeleteReference(name string) error
	// RenameReference renames a reference and returns its new version
	RenameReference(oldName, newName string, force bool) (*ginternals.Reference, error)
	// Compress folds all the loose references into the packed-refs
	// file and removes the loose files it absorbed
	Compress() error

	// Iterator returns an iterator over all the references whose name
	// matches the given glob. An empty glob matches everything
	Iterator(glob string) (ReferenceIterator, error)
	// WalkReferences runs the provided method on all the references
	WalkReferences(glob string, f RefWalkFunc) error
}

// ReferenceIterator walks the merged loose and packed reference
// namespace. Both methods return ginternals.ErrIterOver once every
// reference has been returned
type ReferenceIterator interface {
	// Next returns the next reference
	Next() (*ginternals.Reference, error)
	// NextName returns the name of the next reference
	NextName() (string, error)
}

// RefWalkFunc represents a function that will be applied on all references
// found by WalkReferences()
type RefWalkFunc = func(ref *ginternals.Reference) error

// WalkStop is a fake error used to tell WalkReferences() to stop
var WalkStop = errors.New("stop walking")
