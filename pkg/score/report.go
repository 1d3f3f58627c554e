package score

import (
	"fmt"
	"strings"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// BuildReport renders a human-readable body structure analysis summary.
// Only available measurements are listed.
func BuildReport(m types.Measurements, cls types.Classification) string {
	var b strings.Builder

	b.WriteString("BODY STRUCTURE ANALYSIS REPORT\n")
	b.WriteString("==============================\n\n")

	b.WriteString("Animal Classification:\n")
	fmt.Fprintf(&b, "- Type: %s\n", cls.Type)
	breed := cls.Breed
	if breed == "" {
		breed = "Unknown"
	}
	fmt.Fprintf(&b, "- Breed: %s\n", breed)
	fmt.Fprintf(&b, "- Confidence: %.1f%%\n", clamp(cls.Confidence, 0, 1)*100)

	b.WriteString("\nMorphometric Measurements:\n")
	if m.BodyLength.Valid {
		fmt.Fprintf(&b, "- Body Length: %.2f meters\n", m.BodyLength.Value)
	}
	if m.HeightAtWithers.Valid {
		fmt.Fprintf(&b, "- Height at Withers: %.2f meters\n", m.HeightAtWithers.Value)
	}
	if m.ChestWidth.Valid {
		fmt.Fprintf(&b, "- Chest Width: %.2f meters\n", m.ChestWidth.Value)
	}
	if m.ChestDepth.Valid {
		fmt.Fprintf(&b, "- Chest Depth: %.2f meters\n", m.ChestDepth.Value)
	}
	if m.RumpAngle.Valid {
		fmt.Fprintf(&b, "- Rump Angle: %.1f degrees\n", m.RumpAngle.Value)
	}
	if m.BodyConditionScore.Valid {
		fmt.Fprintf(&b, "- Body Condition Score: %.1f/5.0\n", m.BodyConditionScore.Value)
	}
	if len(m.ValidMap()) == 0 {
		b.WriteString("- No measurements available\n")
	}

	b.WriteString("\nInterpretation:\n")
	if m.BodyConditionScore.Valid {
		bcs := m.BodyConditionScore.Value
		switch {
		case bcs < 2.5:
			b.WriteString("- Body condition is below optimal. Consider nutritional supplementation.\n")
		case bcs < 3.5:
			b.WriteString("- Body condition is moderate. Monitor feeding program.\n")
		case bcs < 4.2:
			b.WriteString("- Body condition is good. Maintain current management.\n")
		default:
			b.WriteString("- Body condition is very good. Animal is well-maintained.\n")
		}
	}

	if m.BodyLength.Valid && m.HeightAtWithers.Valid && m.HeightAtWithers.Value > 0 {
		ratio := m.BodyLength.Value / m.HeightAtWithers.Value
		switch {
		case ratio > 1.3:
			b.WriteString("- Body conformation shows good dairy type characteristics.\n")
		case ratio < 1.2:
			b.WriteString("- Body appears more compact - suitable for beef production.\n")
		default:
			b.WriteString("- Body conformation is within normal range.\n")
		}
	}

	b.WriteString("\nNote: Measurements are estimates based on image analysis. ")
	b.WriteString("For precise measurements, manual measurement is recommended.")

	return b.String()
}
