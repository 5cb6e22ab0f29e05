package menu

// Dish is a single menu entry surfaced to diners. Built once during
// assembly and never mutated afterwards.
type Dish struct {
	OriginalName   string  `json:"original_name"`
	TranslatedName string  `json:"translated_name"`
	Description    string  `json:"description"`
	Price          *string `json:"price"`
}

// Section is a top-level grouping of dishes in first-seen order.
type Section struct {
	Title  string `json:"title"`
	Dishes []Dish `json:"dishes"`
}

// Template is the structured contract consumed by the front end and the
// unit stored behind share tokens.
type Template struct {
	Status           string    `json:"status"`
	OriginalLanguage *string   `json:"original_language,omitempty"`
	Sections         []Section `json:"sections"`
}

func NewTemplate(sections []Section) Template {
	return Template{
		Status:   "completed",
		Sections: sections,
	}
}
