package translator

// Kind distinguishes plain units from units carrying a speaker name.
type Kind int

const (
	KindPlain Kind = iota
	KindNamed
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindNamed:
		return "named"
	default:
		return "unknown"
	}
}

// Unit is one translatable piece of text. Units are values: every stage returns
// new units instead of mutating shared ones.
type Unit struct {
	kind        Kind
	name        string
	original    string
	translation string
	translated  bool
}

// NewPlainUnit creates an untranslated unit without a speaker.
func NewPlainUnit(original string) Unit {
	return Unit{kind: KindPlain, original: original}
}

// NewNamedUnit creates an untranslated unit spoken by name.
func NewNamedUnit(name, original string) Unit {
	return Unit{kind: KindNamed, name: name, original: original}
}

func (u Unit) Kind() Kind       { return u.kind }
func (u Unit) Name() string     { return u.name }
func (u Unit) Original() string { return u.original }

// Translation returns the translated text and whether it is present.
func (u Unit) Translation() (string, bool) {
	return u.translation, u.translated
}

// IsTranslated reports whether the unit carries a translation.
func (u Unit) IsTranslated() bool {
	return u.translated
}

// WithTranslation returns a copy of u carrying translation.
func (u Unit) WithTranslation(translation string) Unit {
	u.translation = translation
	u.translated = true
	return u
}

// Fragment returns an untranslated unit of the same kind and speaker with text as original.
func (u Unit) Fragment(text string) Unit {
	return Unit{kind: u.kind, name: u.name, original: text}
}
