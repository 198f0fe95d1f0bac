package phenology

import "strings"

// Crop is the closed set of crops the scheduler knows rules for.
type Crop string

const (
	CropUnknown Crop = ""
	Corn        Crop = "Corn"
	Soy         Crop = "Soy"
	Cotton      Crop = "Cotton"
)

var cropAliases = map[string]Crop{
	"corn":     Corn,
	"maize":    Corn,
	"milho":    Corn,
	"soy":      Soy,
	"soja":     Soy,
	"soybean":  Soy,
	"soybeans": Soy,
	"cotton":   Cotton,
	"algodão":  Cotton,
	"algodao":  Cotton,
}

// ParseCrop normalizes a free-text crop name. Unrecognized names yield CropUnknown.
func ParseCrop(s string) Crop {
	return cropAliases[strings.ToLower(strings.TrimSpace(s))]
}

func (c Crop) Known() bool { return c != CropUnknown }

func (c Crop) String() string { return string(c) }

// Crops lists the supported crops in display order.
func Crops() []Crop {
	return []Crop{Corn, Soy, Cotton}
}

// Rule holds the crop-specific adjustments applied while expanding a schedule.
type Rule struct {
	// ExcludeStageNames drops every stage whose lowercased name contains one of these.
	ExcludeStageNames []string
}

// The soy catalog historically carries a duplicated "physiological maturity"
// stage. The exclusion applies to soy only.
var rules = map[Crop]Rule{
	Soy: {ExcludeStageNames: []string{"physiological maturity", "maturação fisiológica"}},
}

func RuleFor(c Crop) Rule {
	return rules[c]
}

func (r Rule) excludes(name string) bool {
	lower := strings.ToLower(name)
	for _, x := range r.ExcludeStageNames {
		if strings.Contains(lower, x) {
			return true
		}
	}
	return false
}

// isPlantingStage matches the zero-offset event already represented by the seed visit.
func isPlantingStage(s Stage) bool {
	if s.Offset == 0 {
		return true
	}
	lower := strings.ToLower(s.Name)
	return strings.Contains(lower, "planting") || strings.Contains(lower, "plantio")
}
