package llm

import "fmt"

const jsonSchemaName = "menu_items"

const extractionInstructions = "You are a meticulous transcription assistant for restaurant menus " +
	"and a language master familiar with the food culture of the world. " +
	"You can recognize menus written in different languages and extract every dish " +
	"exactly as written without translating names, together with its section and price if available. " +
	"Even when the photo is blurry, you always try your best. " +
	"You understand the menu, translate it into the target language, and explain the dishes well. " +
	"You should always follow the instructions and return in the expected json format."

const suggestionInstructionsFormat = "You are a local resident and I'm your friend. " +
	"Start with a brief understanding of the menu and dishes. " +
	"Then use 5 to 8 SHORT sentences to make a quick recommendation of the dishes. " +
	"Use emoji to make it more engaging. " +
	"Always answer simple in less than 8 sentences and using %s. "

// menuItemsSchema is the strict object schema enforced on the extraction
// response. Every item must carry section, names, description and price.
func menuItemsSchema() map[string]interface{} {
	item := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"section": map[string]interface{}{
				"type": "string",
				"description": "The section in this menu if exists, something like appetizer, main dish, " +
					"soup, salad, etc. Translate to the output language with short words. By default `menu`",
			},
			"original_name": map[string]interface{}{
				"type":        "string",
				"description": "Menu item name in the source language.",
			},
			"translated_name": map[string]interface{}{
				"type":        "string",
				"description": "Menu item name translated into the target language.",
			},
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Supporting description or key ingredients.",
			},
			"price": map[string]interface{}{
				"type":        "number",
				"description": "price of the dish",
			},
		},
		"required": []string{
			"section",
			"original_name",
			"translated_name",
			"description",
			"price",
		},
		"additionalProperties": false,
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"items": map[string]interface{}{
				"type":     "array",
				"items":    item,
				"minItems": 1,
			},
		},
		"required":             []string{"items"},
		"additionalProperties": false,
	}
}

func extractionUserText(outputLanguage string) string {
	return fmt.Sprintf(
		"Extract every dish from the attached menu photos and answer everything using %s.",
		outputLanguage,
	)
}

func suggestionInstructions(outputLanguage string) string {
	return fmt.Sprintf(suggestionInstructionsFormat, outputLanguage)
}

func suggestionUserText(outputLanguage string) string {
	return fmt.Sprintf("answer everything using %s", outputLanguage)
}
