package model

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StandardVersion is the version name used for a model's base trim.
const StandardVersion = "Standard"

// Vehicle is a catalog record. Values are copied out of the catalog and
// never mutated by the comparison core.
type Vehicle struct {
	ID      string `json:"id" yaml:"id"`
	Brand   string `json:"brand" yaml:"brand"`
	Model   string `json:"model" yaml:"model"`
	Version string `json:"version" yaml:"version"`
	Name    string `json:"name" yaml:"name"`
	Price   int    `json:"price" yaml:"price"` // euros
	Power   int    `json:"power" yaml:"power"` // horsepower
	Image   string `json:"image,omitempty" yaml:"image,omitempty"`
}

// IsStandard reports whether the vehicle is the model's base version.
func (v Vehicle) IsStandard() bool {
	return v.Version == "" || strings.EqualFold(v.Version, StandardVersion)
}

// PowerLabel renders the power the way the catalog displays it ("650ch").
func (v Vehicle) PowerLabel() string {
	return strconv.Itoa(v.Power) + "ch"
}

// PriceLabel renders the price grouped in the French style ("245 000 €").
func (v Vehicle) PriceLabel() string {
	return FormatPrice(v.Price)
}

// DisplayName joins brand, model and version, leaving out the Standard
// sentinel.
func DisplayName(brand, model, version string) string {
	parts := []string{brand, model}
	if version != "" && !strings.EqualFold(version, StandardVersion) {
		parts = append(parts, version)
	}
	return strings.Join(parts, " ")
}

// VehicleID derives the stable key for a brand/model/version path,
// e.g. ("Lamborghini", "Huracán", "EVO") -> "lamborghini-huracan-evo".
func VehicleID(brand, model, version string) string {
	parts := []string{brand, model}
	if version != "" && !strings.EqualFold(version, StandardVersion) {
		parts = append(parts, version)
	}
	return slugify(strings.Join(parts, " "))
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slugify(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var powerSuffixes = []string{"bhp", "ch", "cv", "hp", "ps"}

// ParsePower normalizes a display power string ("650ch", "650 hp", "650")
// to an integer horsepower value.
func ParsePower(s string) (int, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range powerSuffixes {
		if strings.HasSuffix(raw, suffix) {
			raw = strings.TrimSpace(strings.TrimSuffix(raw, suffix))
			break
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "model: parse power %q", s)
	}
	if n <= 0 {
		return 0, eris.Errorf("model: power must be positive, got %q", s)
	}
	return n, nil
}

var pricePrinter = message.NewPrinter(language.French)

// FormatPrice groups digits the way the original French UI does.
func FormatPrice(euros int) string {
	return pricePrinter.Sprintf("%d", euros) + " €"
}
