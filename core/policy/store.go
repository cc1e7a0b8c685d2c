package policy

import (
	"sync/atomic"
)

// Store holds the current policy document and swaps it atomically on reload.
// In-flight evaluations keep the document reference they captured at entry
// and never observe a partially updated policy.
type Store struct {
	path string
	doc  atomic.Pointer[Document]
}

// NewStore loads the document at path. A broken document fails construction;
// the service must not start serving without a valid policy.
func NewStore(path string) (*Store, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.doc.Store(doc)
	return s, nil
}

// NewStoreFromDocument wraps an already-validated document; tests and embedders
// use this to avoid the filesystem.
func NewStoreFromDocument(doc *Document) *Store {
	s := &Store{}
	s.doc.Store(doc)
	return s
}

// Current returns the active document. Never nil after construction.
func (s *Store) Current() *Document {
	return s.doc.Load()
}

// Reload re-reads the document from disk. On any error the previous document
// stays active and the error is returned to the operator.
func (s *Store) Reload() error {
	doc, err := Load(s.path)
	if err != nil {
		return err
	}
	s.doc.Store(doc)
	return nil
}
