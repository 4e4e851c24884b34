package models

import "fmt"

// Expected cardinalities of the color collections returned by the
// analysis model. Responses that deviate are rejected, never truncated.
const (
	PowerColorCount   = 12
	NeutralColorCount = 4
	BlockedColorCount = 3
	CombinationCount  = 3
)

// Season names assigned by the colorimetry analysis (12 fixed categories).
var Seasons = []string{
	"Invierno Profundo", "Invierno Verdadero", "Invierno Brillante",
	"Verano Claro", "Verano Verdadero", "Verano Suave",
	"Otoño Suave", "Otoño Verdadero", "Otoño Profundo",
	"Primavera Brillante", "Primavera Verdadera", "Primavera Clara",
}

// Color is a recommended color with its role in the palette
type Color struct {
	Name  string `bson:"name" json:"name"`
	Hex   string `bson:"hex" json:"hex"`
	Usage string `bson:"usage,omitempty" json:"usage,omitempty"`
}

// BlockedColor is a color the analysis recommends avoiding
type BlockedColor struct {
	Name   string `bson:"name" json:"name"`
	Hex    string `bson:"hex" json:"hex"`
	Reason string `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Combination is a named set of hex codes that work together
type Combination struct {
	Name   string   `bson:"name" json:"name"`
	Colors []string `bson:"colors" json:"colors"`
}

// PhysicalFeatures holds the descriptive traits extracted from the photo
type PhysicalFeatures struct {
	SkinTone  string `bson:"skinTone" json:"skinTone"`
	HairColor string `bson:"hairColor" json:"hairColor"`
	HairStyle string `bson:"hairStyle" json:"hairStyle"`
	FaceShape string `bson:"faceShape" json:"faceShape"`
	EyeColor  string `bson:"eyeColor" json:"eyeColor"`
}

// Analysis is the durable output of the colorimetry analysis stage
type Analysis struct {
	Season              string           `bson:"season" json:"season"`
	BodyType            string           `bson:"bodyType" json:"bodyType"`
	Gender              string           `bson:"gender" json:"gender"`
	Age                 int              `bson:"age" json:"age"`
	Weight              float64          `bson:"weight,omitempty" json:"weight,omitempty"`
	Height              float64          `bson:"height,omitempty" json:"height,omitempty"`
	Glasses             string           `bson:"glasses,omitempty" json:"glasses,omitempty"`
	Features            string           `bson:"features,omitempty" json:"features,omitempty"`
	Description         string           `bson:"description" json:"description"`
	PhysicalFeatures    PhysicalFeatures `bson:"physicalFeatures" json:"physicalFeatures"`
	PowerColors         []Color          `bson:"powerColors" json:"powerColors"`
	NeutralColors       []Color          `bson:"neutralColors" json:"neutralColors"`
	BlockedColors       []BlockedColor   `bson:"blockedColors" json:"blockedColors"`
	WinningCombinations []Combination    `bson:"winningCombinations" json:"winningCombinations"`
	LuceScore           int              `bson:"luceScore" json:"luceScore"`
}

// Validate checks the fixed cardinalities of the color collections.
func (a *Analysis) Validate() error {
	if a.Season == "" {
		return fmt.Errorf("analysis is missing a season")
	}
	if n := len(a.PowerColors); n != PowerColorCount {
		return fmt.Errorf("expected %d power colors, got %d", PowerColorCount, n)
	}
	if n := len(a.NeutralColors); n != NeutralColorCount {
		return fmt.Errorf("expected %d neutral colors, got %d", NeutralColorCount, n)
	}
	if n := len(a.BlockedColors); n != BlockedColorCount {
		return fmt.Errorf("expected %d blocked colors, got %d", BlockedColorCount, n)
	}
	if n := len(a.WinningCombinations); n != CombinationCount {
		return fmt.Errorf("expected %d winning combinations, got %d", CombinationCount, n)
	}
	return nil
}
