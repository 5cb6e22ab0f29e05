package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedPayload marks model output that is not valid JSON or lacks
// the required top-level items collection.
var ErrMalformedPayload = errors.New("malformed menu payload")

const defaultSectionTitle = "Menu"

type rawItem struct {
	Section        string      `json:"section"`
	OriginalName   string      `json:"original_name"`
	TranslatedName string      `json:"translated_name"`
	Description    string      `json:"description"`
	Price          interface{} `json:"price"`
}

// BuildTemplate converts the model's raw JSON payload into a Template.
// Sections keep the order their first dish was encountered in, dishes keep
// insertion order, and items missing any of the three required strings are
// dropped silently since partial extraction is expected.
func BuildTemplate(raw []byte) (Template, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	itemsRaw, ok := payload["items"]
	if !ok {
		return Template{}, fmt.Errorf("%w: missing items collection", ErrMalformedPayload)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		return Template{}, fmt.Errorf("%w: items is not an array", ErrMalformedPayload)
	}

	var (
		order   []string
		grouped = make(map[string][]Dish)
	)
	for _, entry := range items {
		var item rawItem
		if err := json.Unmarshal(entry, &item); err != nil {
			// Non-object items are tolerated, like incomplete ones.
			continue
		}

		title := strings.TrimSpace(item.Section)
		if title == "" {
			title = defaultSectionTitle
		}

		originalName := strings.TrimSpace(item.OriginalName)
		translatedName := strings.TrimSpace(item.TranslatedName)
		description := strings.TrimSpace(item.Description)
		if originalName == "" || translatedName == "" || description == "" {
			continue
		}

		if _, seen := grouped[title]; !seen {
			order = append(order, title)
		}
		grouped[title] = append(grouped[title], Dish{
			OriginalName:   originalName,
			TranslatedName: translatedName,
			Description:    description,
			Price:          formatPrice(item.Price),
		})
	}

	sections := make([]Section, 0, len(order))
	for _, title := range order {
		sections = append(sections, Section{Title: title, Dishes: grouped[title]})
	}
	return NewTemplate(sections), nil
}

// formatPrice renders prices into display-friendly strings: integral
// numbers lose the decimal point, other numbers keep exactly two decimals,
// and literal sentinels like "N/A" pass through untouched.
func formatPrice(value interface{}) *string {
	switch price := value.(type) {
	case nil:
		return nil
	case string:
		if price == "" {
			return nil
		}
		return &price
	case float64:
		var s string
		if price == math.Trunc(price) {
			s = strconv.FormatInt(int64(price), 10)
		} else {
			s = strconv.FormatFloat(price, 'f', 2, 64)
		}
		return &s
	default:
		s := fmt.Sprint(price)
		return &s
	}
}
