// Package model defines the Schema and ModelInstance primitives shared by
// every amalgam search space.
//
// A Schema fixes a set of sort (entity-type) names and a set of typed unary
// functions between them. A ModelInstance is one finite, immutable
// realization of a Schema: a concrete element list per sort and a concrete
// total function per declared function symbol.
//
// Instances enter the engine through the Instance interface, so an external
// storage layer may supply its own representation. The package also ships
// MemInstance, a plain in-memory implementation with a validating Builder,
// which is what the composition engines produce.
//
// Identity: Instance.Key returns a canonical serialization of the structure,
// stable across runs, used by exploration visited-sets and memo caches.
//
// Errors:
//
//	ErrNilSchema      - nil *Schema passed to a constructor.
//	ErrDuplicateSort  - schema declares the same sort twice.
//	ErrUnknownSort    - operation referenced an undeclared sort.
//	ErrUnknownFn      - operation referenced an undeclared function.
//	ErrUnknownElem    - operation referenced a missing element.
//	ErrDuplicateElem  - element added twice to the same sort.
//	ErrIncompleteFn   - a function is missing an image for some element.
//	ErrSchemaMismatch - two instances built over different schemas were mixed.
package model
