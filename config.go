package configmanager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MikeDP/ConfigManager/store"
	"github.com/sirupsen/logrus"
)

const (
	// privatePrefix marks fields that stay session-only and are never persisted.
	privatePrefix = "_"

	// commentField is the reserved name routed to the document comment
	// instead of an ordinary field.
	commentField = "_comment"

	// defaultComment is written as the document header unless the caller
	// overrides it.
	defaultComment = "DO NOT HAND EDIT!"

	// fileExtension is appended to the config file base name.
	fileExtension = ".conf"
)

// field is a single named value plus its visibility. The persist flag is
// derived once from the name prefix when the field is created, so the
// serialization path never re-derives visibility from the name.
type field struct {
	value   interface{}
	persist bool
}

// Config is a dynamic bag of named values backed by a store.Repository.
// Fields are created on first Set, reads of unknown names return nil rather
// than failing, and Save serializes every public field to a single JSON
// document in the repository. Names starting with "_" are session-only.
//
// Config is not safe for concurrent use; callers own the single-threaded
// lifecycle (load on construction, mutate, explicit Save).
type Config struct {
	fields  map[string]field
	comment string
	repo    store.Repository
}

// Option customizes a Config during construction.
type Option func(*Config)

// WithComment overrides the default document comment. An empty comment
// suppresses the header entirely.
func WithComment(comment string) Option {
	return func(c *Config) {
		c.comment = comment
	}
}

// New creates a Config persisted at <user config dir>/<appName>/<fileName>.conf,
// creating the directory if needed, and loads any existing document.
func New(appName, fileName string, opts ...Option) (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving user config dir: %w", err)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir %q: %w", dir, err)
	}
	repo := &store.FileRepository{
		Name: fileName,
		Path: filepath.Join(dir, fileName+fileExtension),
	}
	return NewWithRepository(repo, opts...)
}

// NewWithRepository creates a Config backed by an arbitrary repository and
// loads any existing document from it. A missing document is not an error;
// a malformed one is (ErrCorruptConfig).
func NewWithRepository(repo store.Repository, opts ...Option) (*Config, error) {
	c := &Config{
		fields:  make(map[string]field),
		comment: defaultComment,
		repo:    repo,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the current value of name, or nil if it was never set.
// It never fails for unknown names.
func (c *Config) Get(name string) interface{} {
	v, _ := c.GetOK(name)
	return v
}

// GetOK returns the value of name and whether the field exists, so callers
// can tell an explicit nil apart from an absent field.
func (c *Config) GetOK(name string) (interface{}, bool) {
	if name == commentField {
		return c.comment, true
	}
	f, ok := c.fields[name]
	if !ok {
		return nil, false
	}
	return f.value, true
}

// Set stores value under name, creating the field if absent. Values are
// validated against the supported kinds at save time, not here.
func (c *Config) Set(name string, value interface{}) {
	if name == commentField {
		c.comment = fmt.Sprint(value)
		return
	}
	c.fields[name] = field{
		value:   value,
		persist: !strings.HasPrefix(name, privatePrefix),
	}
}

// Assign is the get-or-init operation: if name is nil or absent it stores
// def and returns it, otherwise it returns the existing value unchanged.
// The returned value always equals the stored value.
func (c *Config) Assign(name string, def interface{}) interface{} {
	if v := c.Get(name); v != nil {
		return v
	}
	c.Set(name, def)
	return def
}

// Delete removes a field. Deleting an unknown name is a no-op.
func (c *Config) Delete(name string) {
	delete(c.fields, name)
}

// Fields returns the sorted names of every field currently present,
// private ones included. The comment is not a field.
func (c *Config) Fields() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PublicFields returns the fields that Save would persist.
func (c *Config) PublicFields() map[string]interface{} {
	public := make(map[string]interface{})
	for name, f := range c.fields {
		if f.persist {
			public[name] = f.value
		}
	}
	return public
}

// Comment returns the document comment.
func (c *Config) Comment() string {
	return c.comment
}

// SetComment replaces the document comment.
func (c *Config) SetComment(comment string) {
	c.comment = comment
}

// Repository returns the backing repository.
func (c *Config) Repository() store.Repository {
	return c.repo
}

// Save serializes the public fields plus the comment and replaces the
// persisted document wholesale. An unsupported field value aborts the save
// before anything is written.
func (c *Config) Save() error {
	doc, err := encodeDocument(c.comment, c.PublicFields())
	if err != nil {
		return err
	}
	if err := c.repo.Store(doc); err != nil {
		return fmt.Errorf("storing config %q: %w", c.repo.GetName(), err)
	}
	return nil
}

// Load refreshes the repository and repopulates fields from the persisted
// document. A missing document leaves the Config as-is; a malformed one is
// reported as ErrCorruptConfig, never silently replaced by an empty object.
func (c *Config) Load() error {
	err := c.repo.Refresh()
	if errors.Is(err, store.ErrNotExist) {
		logrus.WithField("name", c.repo.GetName()).Debug("config not found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("refreshing config %q: %w", c.repo.GetName(), err)
	}

	data := c.repo.GetRawData()
	if len(data) == 0 {
		return nil
	}
	comment, fields, err := decodeDocument(data)
	if err != nil {
		return err
	}
	if comment != "" {
		c.comment = comment
	}
	for name, value := range fields {
		c.Set(name, value)
	}
	return nil
}
