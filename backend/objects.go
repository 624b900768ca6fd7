package backend

import (
	"github.com/goabstract/refdb/ginternals/githash"
	"github.com/goabstract/refdb/ginternals/object"
)

// ObjectInfo describes an object stored in the object database, as
// far as the reference database is concerned
type ObjectInfo struct {
	// Type is the type of the object
	Type object.Type
	// TagTarget is the id of the object targeted by the tag.
	// Only set when Type is object.TypeTag
	TagTarget githash.Oid
}

// ObjectResolver represents the part of the object database the
// reference database needs: classifying the object a reference
// points to, so tag references can be peeled.
// ginternals.ErrObjectNotFound is expected when the object doesn't
// exist
type ObjectResolver interface {
	ObjectInfo(oid githash.Oid) (ObjectInfo, error)
}
