package core

import (
	"fmt"
	"sort"
	"strings"
)

// Marker is a behavioural tag attached to an occurrence
type Marker uint8

const (
	MarkerAutomated Marker = 1 << iota
	MarkerDirect
	MarkerListserv
)

var markerNames = map[Marker]string{
	MarkerAutomated: "automated",
	MarkerDirect:    "direct",
	MarkerListserv:  "listserv",
}

func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	return fmt.Sprintf("marker(%d)", uint8(m))
}

// ParseMarker parses a marker name
func ParseMarker(s string) (Marker, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range markerNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown marker: %q", s)
}

// MarkerSet is a set of markers. The zero value is the empty set.
type MarkerSet uint8

// NewMarkerSet builds a set from the given markers
func NewMarkerSet(markers ...Marker) MarkerSet {
	var s MarkerSet
	for _, m := range markers {
		s = s.With(m)
	}
	return s
}

// With returns the set with m added
func (s MarkerSet) With(m Marker) MarkerSet {
	return s | MarkerSet(m)
}

// Has reports whether m is in the set
func (s MarkerSet) Has(m Marker) bool {
	return s&MarkerSet(m) != 0
}

// Union returns the union of both sets
func (s MarkerSet) Union(o MarkerSet) MarkerSet {
	return s | o
}

// IsEmpty reports whether the set has no markers
func (s MarkerSet) IsEmpty() bool {
	return s == 0
}

// Markers returns the members sorted by name
func (s MarkerSet) Markers() []Marker {
	var out []Marker
	for m := range markerNames {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// String serializes the set as a sorted comma-separated list
func (s MarkerSet) String() string {
	markers := s.Markers()
	names := make([]string, len(markers))
	for i, m := range markers {
		names[i] = m.String()
	}
	return strings.Join(names, ",")
}

// ParseMarkerSet parses the output of MarkerSet.String
func ParseMarkerSet(s string) (MarkerSet, error) {
	var set MarkerSet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseMarker(part)
		if err != nil {
			return 0, err
		}
		set = set.With(m)
	}
	return set, nil
}

// MarkerDeriver computes the per-message and per-address markers
type MarkerDeriver struct {
	listservHeaders    map[string]struct{}
	automationKeywords []string
}

// NewMarkerDeriver creates a marker deriver from the listserv header names and
// the automation substrings
func NewMarkerDeriver(listservHeaders, automationKeywords []string) *MarkerDeriver {
	headers := make(map[string]struct{}, len(listservHeaders))
	for _, h := range listservHeaders {
		headers[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	keywords := make([]string, 0, len(automationKeywords))
	for _, kw := range automationKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &MarkerDeriver{
		listservHeaders:    headers,
		automationKeywords: keywords,
	}
}

// MessageMarkers returns the markers shared by every occurrence of a message
func (d *MarkerDeriver) MessageMarkers(headerKeys []string) MarkerSet {
	for _, k := range headerKeys {
		if _, ok := d.listservHeaders[strings.ToLower(k)]; ok {
			return NewMarkerSet(MarkerListserv)
		}
	}
	return 0
}

// AddressMarkers returns the markers that depend only on the address itself
func (d *MarkerDeriver) AddressMarkers(email string) MarkerSet {
	email = strings.ToLower(email)
	for _, kw := range d.automationKeywords {
		if strings.Contains(email, kw) {
			return NewMarkerSet(MarkerAutomated)
		}
	}
	return 0
}

// Derive returns the markers of one occurrence
func (d *MarkerDeriver) Derive(headerKeys []string, email string) MarkerSet {
	return d.MessageMarkers(headerKeys).Union(d.AddressMarkers(email))
}
