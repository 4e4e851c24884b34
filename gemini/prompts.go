package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucelabs/luce-styling-api/models"
)

const validationPrompt = `
Analyze this image to determine if it is suitable for a professional color analysis.
Check the following criteria:
1. Face is clearly visible, centered, and not obstructed.
2. Eyes are open and visible.
3. Lighting is adequate (not too dark, not washed out/overexposed).
4. Image is sharp enough (not blurry).

Return a JSON object with this EXACT structure:
{
  "isValid": boolean,
  "issues": string[] (List of specific issues in Spanish if any, e.g., "La imagen es demasiado oscura", "El rostro no está centrado", "Los ojos están cerrados")
}
`

const describeClothingPrompt = `
Analyze this image of a clothing item.
Return a JSON object with this EXACT structure:
{
  "description": "A detailed but concise description of the item in Spanish (e.g., 'Camisa de lino azul cielo con cuello mao' or 'Pantalones vaqueros rectos de lavado oscuro'). Focus on color, material, and style.",
  "category": "superior" | "inferior" | "shoes" | "accessories"
}
IMPORTANT: The category must be one of the specified values.
`

// Fixed directives appended to every image-edit prompt so the model
// keeps the person recognizable.
const fidelityDirectives = " -- preserve face details, photorealistic, 8k, exact facial features, same body type"

func analysisPrompt(styles []string) string {
	styleLine := ""
	if len(styles) > 0 {
		styleLine = fmt.Sprintf("\nThe user identifies with these styles: %s. Take them into account for the description and recommendations.\n", strings.Join(styles, ", "))
	}
	return fmt.Sprintf(`
Analyze this image of a person for a professional fashion consultation.
Return a JSON object with this EXACT structure.
IMPORTANT: ALL TEXT VALUES MUST BE IN SPANISH.
%s{
  "season": "Invierno Profundo" | "Invierno Verdadero" | "Invierno Brillante" | "Verano Claro" | "Verano Verdadero" | "Verano Suave" | "Otoño Suave" | "Otoño Verdadero" | "Otoño Profundo" | "Primavera Brillante" | "Primavera Verdadera" | "Primavera Clara",
  "bodyType": "Delgado" | "Esbelto" | "Atlético" | "Grueso",
  "gender": "Hombre" | "Mujer" | "No binario",
  "age": number (approximate),
  "weight": number (approximate in kg),
  "height": number (approximate in cm),
  "glasses": "Description of glasses if present (frame/color) in Spanish, or 'Ninguno'",
  "features": "Distinctive features (moles, scars, etc.) in Spanish, or 'Ninguna'",
  "description": "Short description of their style in Spanish",
  "physicalFeatures": {
    "skinTone": "Detailed description of skin tone in Spanish (e.g. Clara con subtonos cálidos, Oscura profunda, Oliva)",
    "hairColor": "Detailed hair color in Spanish",
    "hairStyle": "Hair style description in Spanish",
    "faceShape": "Face shape description in Spanish",
    "eyeColor": "Eye color in Spanish"
  },
  "powerColors": [
    { "name": "Color Name in Spanish", "hex": "#HEXCODE", "usage": "Primary/Accent" }
  ] (exactly 12 colors),
  "neutralColors": [
    { "name": "Color Name in Spanish", "hex": "#HEXCODE", "usage": "Base" }
  ] (exactly 4 colors),
  "blockedColors": [
    { "name": "Color Name in Spanish", "hex": "#HEXCODE", "reason": "Why to avoid in Spanish" }
  ] (3 colors),
  "winningCombinations": [
    { "name": "Combo Name in Spanish", "colors": ["#HEX1", "#HEX2"] }
  ] (3 combos),
  "luceScore": number (1-100, estimate based on current outfit harmony)
}
IMPORTANT: Provide EXACTLY 12 items for 'powerColors' and 4 items for 'neutralColors'. Ensure ALL text is in Spanish.
`, styleLine)
}

func planningPrompt(analysis *models.Analysis, occasion models.Occasion, timeOfDay models.TimeOfDay, items []models.ClothingItem) string {
	var clothingLines []string
	for _, item := range items {
		clothingLines = append(clothingLines, fmt.Sprintf("- %s: %s", item.Category, item.Description))
	}

	powerColors, _ := json.Marshal(analysis.PowerColors)

	return fmt.Sprintf(`
You are a professional fashion stylist. Plan a complete outfit for a %s, approx %d years old, with %s body type.

The user has provided their own photo. You must generate a prompt that edits the clothing in the photo while preserving the user's face and body EXACTLY.

MANDATORY CLOTHING ITEMS (User's own clothes):
%s

Context:
- Occasion: "%s"
- Time of day: "%s"
- Color Season: "%s"
- Available Power Colors: %s

Instructions:
1. Incorporate the MANDATORY CLOTHING ITEMS into the outfit.
2. Select 3-5 specific colors from the Power Colors list.
3. Create a prompt for an Image Editing model. The prompt should focus on "Changing the outfit to..." or "Wearing...".

Return ONLY valid JSON:
{
  "imagenPrompt": "String (The prompt for the image editor)",
  "selectedColors": [
    { "name": "String", "hex": "String" }
  ]
}
`, analysis.Gender, analysis.Age, analysis.BodyType,
		strings.Join(clothingLines, "\n"),
		occasion, timeOfDay, analysis.Season, string(powerColors))
}
