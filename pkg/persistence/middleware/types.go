// Package middleware wraps a PersistenceStore to protect user data at rest.
package middleware

import "github.com/aretw0/storeflow/pkg/ports"

// Middleware allows wrapping a PersistenceStore to add behavior.
type Middleware func(ports.PersistenceStore) ports.PersistenceStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.PersistenceStore, mws ...Middleware) ports.PersistenceStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
