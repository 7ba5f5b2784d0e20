// Package store provides persistence for codemode resources.
//
// Keys follow the convention "/{kind}/{name}".
package store

import "fmt"

// Store is the persistence interface for all codemode resources.
type Store interface {
	// Create stores a new object at the given key.
	// Returns an error if the key already exists.
	Create(key string, value interface{}) error

	// Get retrieves the object stored at key and deserialises it into target.
	// Returns ErrNotFound if the key does not exist.
	Get(key string, target interface{}) error

	// Update replaces the object at the given key.
	// Returns ErrNotFound if the key does not exist.
	Update(key string, value interface{}) error

	// Delete removes the object at the given key.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns every object whose key starts with prefix, in key order.
	// factory is called once per result to create a zero-value pointer that
	// the stored JSON is unmarshalled into.
	List(prefix string, factory func() interface{}) ([]interface{}, error)

	// Close releases any resources held by the store (e.g. BoltDB file handle).
	Close() error
}

// Common sentinel errors.
var (
	ErrAlreadyExists = fmt.Errorf("key already exists")
	ErrNotFound      = fmt.Errorf("key not found")
)

// ResourceKey builds a canonical store key for a resource.
//
//	ResourceKey("Run", "add-numbers")
//	=> "/Run/add-numbers"
func ResourceKey(kind, name string) string {
	return fmt.Sprintf("/%s/%s", kind, name)
}

// KindPrefix builds the List prefix covering every resource of a kind.
func KindPrefix(kind string) string {
	return "/" + kind + "/"
}
