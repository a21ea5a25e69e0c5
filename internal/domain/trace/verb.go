package trace

import "strings"

// KnownVerb enumerates the well-known verbs.
type KnownVerb int

// Well-known verbs. VerbUnknown marks a verb string outside the vocabulary.
const (
	VerbUnknown KnownVerb = iota
	VerbInitialized
	VerbProgressed
	VerbCompleted
	VerbAccessed
	VerbSkipped
	VerbSelected
	VerbUnlocked
	VerbInteracted
	VerbUsed
)

type verbEntry struct {
	name string
	iri  string
}

var verbTable = map[KnownVerb]verbEntry{
	VerbInitialized: {"initialized", "http://adlnet.gov/expapi/verbs/initialized"},
	VerbProgressed:  {"progressed", "http://adlnet.gov/expapi/verbs/progressed"},
	VerbCompleted:   {"completed", "http://adlnet.gov/expapi/verbs/completed"},
	VerbAccessed:    {"accessed", "https://w3id.org/xapi/seriousgames/verbs/accessed"},
	VerbSkipped:     {"skipped", "http://id.tincanapi.com/verb/skipped"},
	VerbSelected:    {"selected", "https://w3id.org/xapi/adb/verbs/selected"},
	VerbUnlocked:    {"unlocked", "https://w3id.org/xapi/seriousgames/verbs/unlocked"},
	VerbInteracted:  {"interacted", "http://adlnet.gov/expapi/verbs/interacted"},
	VerbUsed:        {"used", "https://w3id.org/xapi/seriousgames/verbs/used"},
}

var (
	verbByName = map[string]KnownVerb{}
	verbByIRI  = map[string]KnownVerb{}
)

func init() {
	for k, e := range verbTable {
		verbByName[e.name] = k
		verbByIRI[e.iri] = k
	}
}

// String returns the canonical name, or "" for VerbUnknown.
func (k KnownVerb) String() string { return verbTable[k].name }

// IRI returns the xAPI verb id, or "" for VerbUnknown.
func (k KnownVerb) IRI() string { return verbTable[k].iri }

// Verb is an action identifier: a canonical lowercase string plus the
// resolved well-known verb when there is one.
type Verb struct {
	Name  string
	Known KnownVerb
}

// ParseVerb lowercases s and resolves it against the vocabulary. Unknown
// names are kept verbatim with Known == VerbUnknown.
func ParseVerb(s string) Verb {
	name := strings.ToLower(strings.TrimSpace(s))
	return Verb{Name: name, Known: verbByName[name]}
}

// NewVerb builds a Verb from a well-known verb.
func NewVerb(k KnownVerb) Verb {
	return Verb{Name: k.String(), Known: k}
}

// VerbFromIRI resolves an xAPI verb id.
func VerbFromIRI(iri string) (Verb, bool) {
	k, ok := verbByIRI[iri]
	if !ok {
		return Verb{}, false
	}
	return NewVerb(k), true
}

// IsKnown reports whether the verb resolved to the vocabulary.
func (v Verb) IsKnown() bool { return v.Known != VerbUnknown }

// IRI returns the verb id, or "" when unknown.
func (v Verb) IRI() string { return v.Known.IRI() }

func (v Verb) String() string { return v.Name }
