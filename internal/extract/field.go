// Package extract parses rendered election-office pages into indexed contact fields.
package extract

import (
	"fmt"
	"strconv"
)

// Group is the repeating section a field was found in.
type Group int

const (
	// GroupAddress is a physical-location block (address, email, website, phone, fax).
	GroupAddress Group = iota + 1
	// GroupOfficial is a person/role block (title, name, phone, fax, email).
	GroupOfficial
)

// String returns the group label.
func (g Group) String() string {
	switch g {
	case GroupAddress:
		return "address"
	case GroupOfficial:
		return "official"
	default:
		return "unknown"
	}
}

// Attr is the attribute of a group a field carries.
type Attr string

const (
	AttrAddress Attr = "Address"
	AttrEmail   Attr = "Email"
	AttrWebsite Attr = "Website"
	AttrPhone   Attr = "Phone"
	AttrFax     Attr = "Fax"
	AttrTitle   Attr = "Title"
	AttrName    Attr = "Name"
)

// Field is one extracted (group, index, attribute) -> value event.
// Index is 1-based and counts groups of the same kind in document order.
type Field struct {
	Group Group  `json:"group"`
	Index int    `json:"index"`
	Attr  Attr   `json:"attr"`
	Value string `json:"value"`
}

// Name synthesizes the output column name, e.g. "Address 2" or "Official 1 Phone".
func (f Field) Name() string {
	if f.Group == GroupOfficial {
		return fmt.Sprintf("Official %d %s", f.Index, f.Attr)
	}
	return string(f.Attr) + " " + strconv.Itoa(f.Index)
}

// Fields is an ordered stream of extracted fields for one document.
type Fields []Field

// Map returns the fields keyed by column name. Later duplicates overwrite
// earlier ones, which cannot happen for a single Extract call.
func (fs Fields) Map() map[string]string {
	m := make(map[string]string, len(fs))
	for _, f := range fs {
		m[f.Name()] = f.Value
	}
	return m
}

// Names returns the column names in emission order.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name()
	}
	return names
}

// Count returns the number of distinct groups of kind g.
func (fs Fields) Count(g Group) int {
	n := 0
	for _, f := range fs {
		if f.Group == g && f.Index > n {
			n = f.Index
		}
	}
	return n
}
