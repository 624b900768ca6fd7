package ginternals

import "errors"

var (
	// ErrRefNotFound is an error thrown when trying to act on a
	// reference that doesn't exists
	ErrRefNotFound = errors.New("reference not found")

	// ErrRefExists is an error thrown when trying to act on a
	// reference that should not exist, but does
	ErrRefExists = errors.New("reference already exists")

	// ErrRefCollision is an error thrown when the path of a new
	// reference collides with the path of an existing one.
	// Ex. refs/heads/ml cannot be created if refs/heads/ml/feat exists
	ErrRefCollision = errors.New("reference path collides with an existing reference")

	// ErrRefNameInvalid is an error thrown when the name of a reference
	// is not valid
	ErrRefNameInvalid = errors.New("reference name is not valid")

	// ErrRefInvalid is an error thrown when a reference is not valid
	ErrRefInvalid = errors.New("reference is not valid")

	// ErrPackedRefInvalid is an error thrown when the packed-refs
	// file cannot be parsed properly
	ErrPackedRefInvalid = errors.New("packed-refs file is invalid")

	// ErrLooseRefInvalid is an error thrown when the content of a
	// loose reference file cannot be parsed
	ErrLooseRefInvalid = errors.New("loose reference file is invalid")

	// ErrUnknownRefType is an error thrown when the type of a reference
	// is unknown
	ErrUnknownRefType = errors.New("unknown reference type")

	// ErrObjectNotFound is an error thrown when an object cannot be
	// found in the object database
	ErrObjectNotFound = errors.New("object not found")

	// ErrIterOver is returned by the reference iterator once every
	// reference has been returned. It's a sentinel, not a failure
	ErrIterOver = errors.New("iteration is over")
)
