package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucelabs/luce-styling-api/models"
	"google.golang.org/api/googleapi"
)

func analysisFixture(power, neutral, blocked, combos int) string {
	a := models.Analysis{
		Season:      "Invierno Profundo",
		BodyType:    "rectángulo",
		Gender:      "femenino",
		Age:         28,
		Description: "contraste alto",
		PhysicalFeatures: models.PhysicalFeatures{
			SkinTone:  "fría",
			HairColor: "negro",
			HairStyle: "liso",
			FaceShape: "ovalada",
			EyeColor:  "marrón oscuro",
		},
		LuceScore: 82,
	}
	for i := 0; i < power; i++ {
		a.PowerColors = append(a.PowerColors, models.Color{Name: fmt.Sprintf("power-%d", i), Hex: "#112233"})
	}
	for i := 0; i < neutral; i++ {
		a.NeutralColors = append(a.NeutralColors, models.Color{Name: fmt.Sprintf("neutral-%d", i), Hex: "#445566"})
	}
	for i := 0; i < blocked; i++ {
		a.BlockedColors = append(a.BlockedColors, models.BlockedColor{Name: fmt.Sprintf("blocked-%d", i), Hex: "#778899", Reason: "apaga el rostro"})
	}
	for i := 0; i < combos; i++ {
		a.WinningCombinations = append(a.WinningCombinations, models.Combination{Name: fmt.Sprintf("combo-%d", i), Colors: []string{"#112233", "#445566"}})
	}
	b, _ := json.Marshal(a)
	return string(b)
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict("```json\n{\"isValid\": false, \"issues\": [\"iluminación insuficiente\", \"rostro parcial\"]}\n```")
	if err != nil {
		t.Fatalf("ParseVerdict failed: %v", err)
	}
	if v.IsValid {
		t.Fatal("verdict should be negative")
	}
	if v.FirstIssue() != "iluminación insuficiente" {
		t.Fatalf("FirstIssue = %q", v.FirstIssue())
	}
}

func TestParseVerdictFallbackMessage(t *testing.T) {
	v := Verdict{IsValid: false}
	if v.FirstIssue() == "" {
		t.Fatal("empty issue list must still produce a user-facing message")
	}
}

func TestParseVerdictRejectsGarbage(t *testing.T) {
	if _, err := ParseVerdict("lo siento, no puedo evaluar esta imagen"); err == nil {
		t.Fatal("non-JSON response must fail, never pass as valid")
	}
}

func TestParseAnalysisAcceptsExactShape(t *testing.T) {
	text := "Aquí está tu análisis:\n```json\n" + analysisFixture(12, 4, 3, 3) + "\n```"
	a, err := ParseAnalysis(text)
	if err != nil {
		t.Fatalf("ParseAnalysis failed: %v", err)
	}
	if a.Season != "Invierno Profundo" {
		t.Fatalf("season = %q", a.Season)
	}
	if len(a.PowerColors) != models.PowerColorCount {
		t.Fatalf("power colors = %d", len(a.PowerColors))
	}
}

func TestParseAnalysisRejectsWrongCardinalities(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"11 power colors", analysisFixture(11, 4, 3, 3)},
		{"13 power colors", analysisFixture(13, 4, 3, 3)},
		{"3 neutrals", analysisFixture(12, 3, 3, 3)},
		{"2 blocked", analysisFixture(12, 4, 2, 3)},
		{"4 combinations", analysisFixture(12, 4, 3, 4)},
	}
	for _, c := range cases {
		if _, err := ParseAnalysis(c.text); err == nil {
			t.Fatalf("%s: deviation must be rejected, not truncated", c.name)
		}
	}
}

func TestParseClothingDescription(t *testing.T) {
	d, err := ParseClothingDescription(`{"description":"camisa de lino blanca","category":"superior"}`)
	if err != nil {
		t.Fatalf("ParseClothingDescription failed: %v", err)
	}
	if d.Category != models.CategorySuperior {
		t.Fatalf("category = %q", d.Category)
	}

	if _, err := ParseClothingDescription(`{"description":"algo","category":"sombrero"}`); err == nil {
		t.Fatal("unknown category must be rejected")
	}
}

func planFixture(colors int) string {
	p := OutfitPlan{ImagenPrompt: "cambia la ropa por un traje azul marino"}
	for i := 0; i < colors; i++ {
		p.SelectedColors = append(p.SelectedColors, models.Color{Name: fmt.Sprintf("c-%d", i), Hex: "#001122"})
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func TestParsePlanColorBounds(t *testing.T) {
	for _, n := range []int{3, 4, 5} {
		p, err := ParsePlan(planFixture(n))
		if err != nil {
			t.Fatalf("%d colors: unexpected error: %v", n, err)
		}
		if len(p.SelectedColors) != n {
			t.Fatalf("%d colors: got %d", n, len(p.SelectedColors))
		}
	}
	for _, n := range []int{0, 2, 6} {
		if _, err := ParsePlan(planFixture(n)); err == nil {
			t.Fatalf("%d colors: out-of-range selection must surface as an error", n)
		}
	}
}

func TestParsePlanRequiresPrompt(t *testing.T) {
	text := `{"imagenPrompt":"","selectedColors":[{"hex":"#1"},{"hex":"#2"},{"hex":"#3"}]}`
	if _, err := ParsePlan(text); err == nil {
		t.Fatal("plan without an image prompt must be rejected")
	}
}

func TestParsePlanInsideProse(t *testing.T) {
	text := "Claro, este es el plan: " + planFixture(4) + " ¡que lo disfrutes!"
	if _, err := ParsePlan(text); err != nil {
		t.Fatalf("ParsePlan failed on embedded JSON: %v", err)
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	return &Client{
		imageModel:     defaultImageModel,
		apiKey:         "test-key",
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		ImagenEndpoint: endpoint,
	}
}

func TestEditOutfitImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("edited-jpeg"))

	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		fmt.Fprintf(w, `{"predictions":[{"bytesBase64Encoded":%q}]}`, encoded)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/models/%s:predict")
	img, err := c.EditOutfitImage(context.Background(), "viste al sujeto de gala", "https://example.com/base.jpg")
	if err != nil {
		t.Fatalf("EditOutfitImage failed: %v", err)
	}
	if string(img) != "edited-jpeg" {
		t.Fatalf("decoded image = %q", img)
	}

	instances := gotBody["instances"].([]interface{})
	inst := instances[0].(map[string]interface{})
	prompt := inst["prompt"].(string)
	if !strings.HasSuffix(prompt, fidelityDirectives) {
		t.Fatalf("fidelity directives not appended: %q", prompt)
	}
	image := inst["image"].(map[string]interface{})
	if image["uri"] != "https://example.com/base.jpg" {
		t.Fatalf("image uri = %v", image["uri"])
	}
}

func TestEditOutfitImageRequiresAddressableImage(t *testing.T) {
	c := newTestClient(t, "http://unused/%s")
	_, err := c.EditOutfitImage(context.Background(), "prompt", "")
	if err == nil {
		t.Fatal("missing base image reference must fail before any network call")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageEdit {
		t.Fatalf("error not attributed to the edit stage: %v", err)
	}
}

func TestEditOutfitImageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/models/%s:predict")
	_, err := c.EditOutfitImage(context.Background(), "prompt", "https://example.com/base.jpg")
	if err == nil {
		t.Fatal("upstream failure must surface")
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusTooManyRequests {
		t.Fatalf("status not carried as googleapi.Error: %v", err)
	}
	if !strings.Contains(gerr.Body, "RESOURCE_EXHAUSTED") {
		t.Fatalf("response body not retained: %v", gerr)
	}
}

func TestEditOutfitImageMissingPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"predictions":[{"mimeType":"image/png"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/models/%s:predict")
	if _, err := c.EditOutfitImage(context.Background(), "prompt", "https://example.com/base.jpg"); err == nil {
		t.Fatal("response without image data must fail")
	}
}
