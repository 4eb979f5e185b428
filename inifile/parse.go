// Package inifile is a small INI reader for adorn.ini. It keeps
// declaration order, lowercases section and key names, and ignores
// anything it does not understand rather than failing the load.
package inifile

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// File is a parsed INI file. Sections appear in declaration order;
// a name declared twice produces two entries.
type File struct {
	Sections []Section
}

// Section is one [name] block with its key-value lines in order.
type Section struct {
	Name   string
	Values []KeyValue
}

// KeyValue is a single "key = value" line.
type KeyValue struct {
	Key   string
	Value string
}

// Parse reads INI text from r. Blank lines and lines starting with
// "#" or ";" are skipped, as are key-value lines before the first
// section header and lines with no "=".
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line[0] == '#' || line[0] == ';':
			// skip
		case line[0] == '[' && strings.HasSuffix(line, "]"):
			name := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			f.Sections = append(f.Sections, Section{Name: name})
		default:
			if len(f.Sections) == 0 {
				continue
			}
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			cur := &f.Sections[len(f.Sections)-1]
			cur.Values = append(cur.Values, KeyValue{
				Key:   strings.ToLower(strings.TrimSpace(key)),
				Value: strings.TrimSpace(value),
			})
		}
	}
	return f, scanner.Err()
}

// ParseFile reads and parses the INI file at path.
func ParseFile(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Parse(r)
}

// Section returns the first section with the given name, or nil.
func (f *File) Section(name string) *Section {
	name = strings.ToLower(name)
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// Get returns the last value for a key in a section, or "" when the
// section or key is absent.
func (f *File) Get(section, key string) string {
	s := f.Section(section)
	if s == nil {
		return ""
	}
	return s.Get(key)
}

// GetAll returns every value for a key in a section, in order.
func (f *File) GetAll(section, key string) []string {
	s := f.Section(section)
	if s == nil {
		return nil
	}
	return s.GetAll(key)
}

// Get returns the last value for key. Repeated keys overwrite, so a
// later line wins the way it would in most INI dialects.
func (s *Section) Get(key string) string {
	key = strings.ToLower(key)
	last := ""
	for _, kv := range s.Values {
		if kv.Key == key {
			last = kv.Value
		}
	}
	return last
}

// GetAll returns every value for key, in order.
func (s *Section) GetAll(key string) []string {
	key = strings.ToLower(key)
	var out []string
	for _, kv := range s.Values {
		if kv.Key == key {
			out = append(out, kv.Value)
		}
	}
	return out
}

// HasKey reports whether the section declares the key at all.
func (s *Section) HasKey(key string) bool {
	key = strings.ToLower(key)
	for _, kv := range s.Values {
		if kv.Key == key {
			return true
		}
	}
	return false
}
