// Package headers provides an immutable, ordered, case-insensitive and multi-valued
// collection of HTTP header fields.
//
// Every mutating operation returns a new Collection; the receiver is never modified,
// which makes a Collection safe to share between goroutines and between requests.
package headers

import (
	"iter"
	"net/http"
	"net/textproto"
	"slices"
	"sort"
	"strings"
)

// entry holds one header name and its ordered values.
type entry struct {
	name   string
	values []string
}

// Collection is an ordered mapping from header name to a non-empty sequence of values.
// Names are compared using their canonical MIME form, so "content-type" and
// "Content-Type" address the same entry. The zero value is an empty collection.
type Collection struct {
	entries []entry
}

// New builds a collection from name/value pairs. A trailing name without a value is ignored.
//
//	h := headers.New("Accept", "application/json", "X-Api-Key", "secret")
func New(pairs ...string) Collection {
	var c Collection
	for i := 0; i+1 < len(pairs); i += 2 {
		c = c.Append(pairs[i], pairs[i+1])
	}
	return c
}

// FromHTTP converts a net/http header map. Names are sorted so the result is deterministic.
func FromHTTP(h http.Header) Collection {
	if len(h) == 0 {
		return Collection{}
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	c := Collection{entries: make([]entry, 0, len(names))}
	for _, name := range names {
		if len(h[name]) == 0 {
			continue
		}
		c.entries = append(c.entries, entry{
			name:   textproto.CanonicalMIMEHeaderKey(name),
			values: slices.Clone(h[name]),
		})
	}
	return c
}

// Canonical returns the canonical form used to compare header names.
func Canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
}

func (c Collection) index(name string) int {
	key := Canonical(name)
	for i := range c.entries {
		if c.entries[i].name == key {
			return i
		}
	}
	return -1
}

// Len returns the number of distinct header names.
func (c Collection) Len() int {
	return len(c.entries)
}

// IsEmpty reports whether the collection has no headers.
func (c Collection) IsEmpty() bool {
	return len(c.entries) == 0
}

// Has reports whether a header with the given name exists.
func (c Collection) Has(name string) bool {
	return c.index(name) >= 0
}

// Get returns the first value of the named header.
func (c Collection) Get(name string) (string, bool) {
	i := c.index(name)
	if i < 0 {
		return "", false
	}
	return c.entries[i].values[0], true
}

// Value returns the first value of the named header or an empty string.
func (c Collection) Value(name string) string {
	v, _ := c.Get(name)
	return v
}

// Values returns a copy of all values of the named header, in insertion order.
func (c Collection) Values(name string) []string {
	i := c.index(name)
	if i < 0 {
		return nil
	}
	return slices.Clone(c.entries[i].values)
}

// Names returns the header names in insertion order.
func (c Collection) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// All iterates over the headers in insertion order.
func (c Collection) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, e := range c.entries {
			if !yield(e.name, slices.Clone(e.values)) {
				return
			}
		}
	}
}

func (c Collection) clone() Collection {
	entries := make([]entry, len(c.entries))
	for i, e := range c.entries {
		entries[i] = entry{name: e.name, values: slices.Clone(e.values)}
	}
	return Collection{entries: entries}
}

// Append returns a new collection with values added to the named header.
// A new name is placed after the existing ones. Appending no values is a no-op.
func (c Collection) Append(name string, values ...string) Collection {
	if len(values) == 0 || strings.TrimSpace(name) == "" {
		return c
	}
	out := c.clone()
	if i := out.index(name); i >= 0 {
		out.entries[i].values = append(out.entries[i].values, values...)
		return out
	}
	out.entries = append(out.entries, entry{name: Canonical(name), values: slices.Clone(values)})
	return out
}

// Set returns a new collection where the named header holds exactly the given values.
// The header keeps its position when it already exists.
func (c Collection) Set(name string, values ...string) Collection {
	if len(values) == 0 || strings.TrimSpace(name) == "" {
		return c
	}
	out := c.clone()
	if i := out.index(name); i >= 0 {
		out.entries[i].values = slices.Clone(values)
		return out
	}
	out.entries = append(out.entries, entry{name: Canonical(name), values: slices.Clone(values)})
	return out
}

// Without returns a new collection without the named headers.
func (c Collection) Without(names ...string) Collection {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[Canonical(n)] = struct{}{}
	}
	out := Collection{entries: make([]entry, 0, len(c.entries))}
	for _, e := range c.entries {
		if _, ok := drop[e.name]; ok {
			continue
		}
		out.entries = append(out.entries, entry{name: e.name, values: slices.Clone(e.values)})
	}
	return out
}

// Merge layers overrides on top of c. A name present in overrides replaces all of its
// values in c; names only present in overrides are appended in their original order.
func (c Collection) Merge(overrides Collection) Collection {
	out := c.clone()
	for _, e := range overrides.entries {
		out = out.Set(e.name, e.values...)
	}
	return out
}

// HTTP converts the collection into a net/http header map.
func (c Collection) HTTP() http.Header {
	h := make(http.Header, len(c.entries))
	for _, e := range c.entries {
		h[e.name] = slices.Clone(e.values)
	}
	return h
}

// String renders the collection as "Name: v1, v2" lines.
func (c Collection) String() string {
	var b strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.name)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.values, ", "))
	}
	return b.String()
}
