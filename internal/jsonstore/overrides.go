package jsonstore

import "encoding/json"

// ModOverride is the value stored per mod key in a title's
// mod_name.json (spec.md §4.5): {"display_name": ..., "description": ...}.
type ModOverride struct {
	DisplayName string
	Description string
}

// ModOverrides is a typed accessor over a mod_name.json file, used by
// internal/modcatalog to resolve display-name/description overrides.
// It keeps no cached copy: every Lookup re-reads and re-parses the file.
type ModOverrides struct {
	store *Store
	path  string
}

// NewModOverrides binds a ModOverrides to the mod_name.json at path.
// The file is not read until the first Lookup.
func NewModOverrides(path string) *ModOverrides {
	return &ModOverrides{store: New(path), path: path}
}

type modOverrideJSON struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// Lookup returns the override stored for key, or (_, false) if
// mod_name.json has no entry for key (or does not exist).
func (o *ModOverrides) Lookup(key string) (ModOverride, bool) {
	o.store.mu.Lock()
	doc, err := o.store.read()
	o.store.mu.Unlock()
	if err != nil {
		return ModOverride{}, false
	}
	raw, ok := doc[key]
	if !ok {
		return ModOverride{}, false
	}
	var v modOverrideJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return ModOverride{}, false
	}
	return ModOverride{DisplayName: v.DisplayName, Description: v.Description}, true
}

// Set upserts the override for key.
func (o *ModOverrides) Set(key string, override ModOverride) error {
	o.store.mu.Lock()
	doc, err := o.store.read()
	if err != nil {
		o.store.mu.Unlock()
		return err
	}
	raw, err := json.Marshal(modOverrideJSON{DisplayName: override.DisplayName, Description: override.Description})
	if err != nil {
		o.store.mu.Unlock()
		return err
	}
	doc[key] = raw
	err = o.store.write(doc)
	o.store.mu.Unlock()
	return err
}

// Delete removes the override for key, if present.
func (o *ModOverrides) Delete(key string) error {
	return o.store.DeleteRoot(key)
}
