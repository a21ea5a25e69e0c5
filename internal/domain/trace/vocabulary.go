package trace

import "strings"

// Vocabulary tags the closed set a target type belongs to.
type Vocabulary int

// Target vocabularies.
const (
	VocabularyNone Vocabulary = iota
	VocabularyCompletable
	VocabularyAccessible
	VocabularyAlternative
	VocabularyGameObject
)

func (v Vocabulary) String() string {
	switch v {
	case VocabularyCompletable:
		return "completable"
	case VocabularyAccessible:
		return "accessible"
	case VocabularyAlternative:
		return "alternative"
	case VocabularyGameObject:
		return "gameobject"
	default:
		return "none"
	}
}

// Generic returns the vocabulary's catch-all member used as lenient fallback.
func (v Vocabulary) Generic() Kind {
	k, _ := LookupKind(v.String())
	return k
}

// Kind is one member of a target vocabulary.
type Kind struct {
	Vocabulary Vocabulary
	Name       string
	IRI        string
}

// IsZero reports whether k is the empty kind.
func (k Kind) IsZero() bool { return k.Name == "" }

const seriousGames = "https://w3id.org/xapi/seriousgames/activity-types/"

// Members of the four vocabularies, keyed by simple name.
var (
	// Completable
	KindGame        = kind(VocabularyCompletable, "game", seriousGames+"serious-game")
	KindSession     = kind(VocabularyCompletable, "session", seriousGames+"session")
	KindLevel       = kind(VocabularyCompletable, "level", seriousGames+"level")
	KindQuest       = kind(VocabularyCompletable, "quest", seriousGames+"quest")
	KindStage       = kind(VocabularyCompletable, "stage", seriousGames+"stage")
	KindCombat      = kind(VocabularyCompletable, "combat", seriousGames+"combat")
	KindStoryNode   = kind(VocabularyCompletable, "storynode", seriousGames+"story-node")
	KindRace        = kind(VocabularyCompletable, "race", seriousGames+"race")
	KindCompletable = kind(VocabularyCompletable, "completable", seriousGames+"completable")

	// Accessible
	KindScreen     = kind(VocabularyAccessible, "screen", seriousGames+"screen")
	KindArea       = kind(VocabularyAccessible, "area", seriousGames+"area")
	KindZone       = kind(VocabularyAccessible, "zone", seriousGames+"zone")
	KindCutscene   = kind(VocabularyAccessible, "cutscene", seriousGames+"cutscene")
	KindAccessible = kind(VocabularyAccessible, "accessible", seriousGames+"accessible")

	// Alternative
	KindQuestion    = kind(VocabularyAlternative, "question", "http://adlnet.gov/expapi/activities/question")
	KindMenu        = kind(VocabularyAlternative, "menu", seriousGames+"menu")
	KindDialog      = kind(VocabularyAlternative, "dialog", seriousGames+"dialog-tree")
	KindPath        = kind(VocabularyAlternative, "path", seriousGames+"path")
	KindArena       = kind(VocabularyAlternative, "arena", seriousGames+"arena")
	KindAlternative = kind(VocabularyAlternative, "alternative", seriousGames+"alternative")

	// GameObject
	KindEnemy      = kind(VocabularyGameObject, "enemy", seriousGames+"enemy")
	KindNPC        = kind(VocabularyGameObject, "npc", seriousGames+"non-player-character")
	KindItem       = kind(VocabularyGameObject, "item", seriousGames+"item")
	KindGameObject = kind(VocabularyGameObject, "gameobject", seriousGames+"game-object")
)

var (
	kinds      []Kind
	kindByName = map[string]Kind{}
	kindByIRI  = map[string]Kind{}
)

func kind(v Vocabulary, name, iri string) Kind {
	k := Kind{Vocabulary: v, Name: name, IRI: iri}
	kinds = append(kinds, k)
	kindByName[name] = k
	kindByIRI[iri] = k
	return k
}

// LookupKind resolves a simple type name across all vocabularies.
func LookupKind(name string) (Kind, bool) {
	k, ok := kindByName[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// KindFromIRI resolves an activity type IRI.
func KindFromIRI(iri string) (Kind, bool) {
	k, ok := kindByIRI[iri]
	return k, ok
}

// Kinds returns every member of every vocabulary.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Target is the object a trace acts upon.
type Target struct {
	Type string
	ID   string
}

// Kind resolves the target type, reporting false for unknown types.
func (t Target) Kind() (Kind, bool) { return LookupKind(t.Type) }
