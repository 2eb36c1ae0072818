// Package jsonstore persists the per-title JSON overrides of spec.md
// §4.5: game_name.json (flat slot-dirname -> display_name map) and each
// title's mod_name.json (mod-key -> {display_name, description}). Every
// operation is an atomic read-modify-rewrite: the whole file is
// re-parsed, mutated, pretty-printed, and rewritten; a missing file is
// treated as {} and created on first write.
//
// No JSON-tree-editing library appears anywhere in the retrieved
// example pack (the pack's only JSON usage is struct (de)marshaling
// against API responses), so this package is encoding/json (stdlib)
// by necessity — see DESIGN.md.
package jsonstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"nxmodmgr/internal/domain"
)

// Store is a generic atomic JSON document editor bound to one file
// path. All operations take an exclusive lock for the duration of the
// read-modify-write so concurrent callers (e.g. a background scan and
// a UI edit) never interleave writes to the same file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New binds a Store to path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, domain.NewError(domain.ErrIoRead, s.path, err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewError(domain.ErrIoRead, s.path, err)
	}
	return doc, nil
}

func (s *Store) write(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.NewError(domain.ErrIoWrite, s.path, err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.NewError(domain.ErrIoCreate, dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return domain.NewError(domain.ErrIoWrite, s.path, err)
	}
	return nil
}

// GetRoot returns the value stored at key, or fallback = key itself if
// the key (or the file) is missing. Only valid for string-valued root
// keys (game_name.json's shape).
func (s *Store) GetRoot(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return key, err
	}
	raw, ok := doc[key]
	if !ok {
		return key, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return key, nil
	}
	return v, nil
}

// SetRoot upserts a string-valued root key.
func (s *Store) SetRoot(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return domain.NewError(domain.ErrIoWrite, s.path, err)
	}
	doc[key] = raw
	return s.write(doc)
}

// DeleteRoot removes a root key. Deleting an absent key is a no-op.
func (s *Store) DeleteRoot(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	delete(doc, key)
	return s.write(doc)
}

// RenameRoot renames a root key, optionally creating it as an empty
// object if absent (createIfAbsent=true), or failing if absent
// (createIfAbsent=false) — spec.md §4.5 names both variants.
func (s *Store) RenameRoot(oldKey, newKey string, createIfAbsent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	raw, ok := doc[oldKey]
	if !ok {
		if !createIfAbsent {
			return domain.NewError(domain.ErrUnknown, oldKey, os.ErrNotExist)
		}
		raw = json.RawMessage(`{}`)
	} else {
		delete(doc, oldKey)
	}
	doc[newKey] = raw
	return s.write(doc)
}

// GetNested returns doc[rootKey][nestedKey], falling back to rootKey
// itself if either the root key or the nested key is missing
// (spec.md §4.5).
func (s *Store) GetNested(rootKey, nestedKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return rootKey, err
	}
	rootRaw, ok := doc[rootKey]
	if !ok {
		return rootKey, nil
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(rootRaw, &nested); err != nil {
		return rootKey, nil
	}
	valRaw, ok := nested[nestedKey]
	if !ok {
		return rootKey, nil
	}
	var v string
	if err := json.Unmarshal(valRaw, &v); err != nil {
		return rootKey, nil
	}
	return v, nil
}

// SetNested upserts doc[rootKey][nestedKey] = value, creating the root
// object if it did not already exist.
func (s *Store) SetNested(rootKey, nestedKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	nested := map[string]json.RawMessage{}
	if rootRaw, ok := doc[rootKey]; ok {
		_ = json.Unmarshal(rootRaw, &nested)
	}
	valRaw, err := json.Marshal(value)
	if err != nil {
		return domain.NewError(domain.ErrIoWrite, s.path, err)
	}
	nested[nestedKey] = valRaw
	rootRaw, err := json.Marshal(nested)
	if err != nil {
		return domain.NewError(domain.ErrIoWrite, s.path, err)
	}
	doc[rootKey] = rootRaw
	return s.write(doc)
}

// DeleteNested removes doc[rootKey][nestedKey]. A missing root or
// nested key is a no-op.
func (s *Store) DeleteNested(rootKey, nestedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	rootRaw, ok := doc[rootKey]
	if !ok {
		return nil
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(rootRaw, &nested); err != nil {
		return nil
	}
	delete(nested, nestedKey)
	rootRaw2, err := json.Marshal(nested)
	if err != nil {
		return domain.NewError(domain.ErrIoWrite, s.path, err)
	}
	doc[rootKey] = rootRaw2
	return s.write(doc)
}
