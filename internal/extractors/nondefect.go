package extractors

import (
	"regexp"
	"strings"
)

// Routine/administrative indicators. A hit here marks the work order as a
// non-defect unless a defect indicator also matches.
var nonDefectPatterns = []string{
	`\bclean(?:ing|ed)?\b`,
	`\blubrication\b`,
	`\bservicing\b`,
	`\boil\s+replenish(?:ment|ed)?\b`,
	`\bfirst\s+aid\s+kit\b`,
	`\btyre\s+wear\b`,
	`\btire\s+wear\b`,
	`\bscheduled\s+(?:maintenance|inspection|check)\b`,
	`\broutine\s+(?:maintenance|inspection|check)\b`,
	`\bsoftware\s+load(?:ing|ed)?\b`,
	`\bsoftware\s+update\b`,
	`\bnff\b`,
	`\bno\s+fault\s+found\b`,
	`\boperational\s+check\b`,
	`\bfunctional\s+(?:test|check)\b`,
	`\bvisual\s+inspection\b`,
	`\bgeneral\s+inspection\b`,
	`\bperiodic\s+(?:check|inspection)\b`,
	`\breplacement\s+as\s+per\s+schedule\b`,
	`\blife\s+limited\s+part\b`,
	`\bllp\s+replacement\b`,
	`\bcabin\s+(?:cleaning|refurbishment)\b`,
	`\bcosmetic\s+repair\b`,
	`\bseat\s+(?:cleaning|cover)\b`,
	`\bcarpet\s+(?:cleaning|replacement)\b`,
	`\blavatory\s+(?:cleaning|servicing)\b`,
	`\bgalley\s+(?:cleaning|servicing)\b`,
	`\bpassenger\s+(?:seat|entertainment)\s+(?:cleaning|adjustment)\b`,
}

// Defect indicators override any routine match: a leak found during servicing
// is still a defect.
var defectOverridePatterns = []string{
	`\bfailure\b`,
	`\bfailed\b`,
	`\bfault\b`,
	`\bfaulty\b`,
	`\bleak(?:ing|age)?\b`,
	`\boverheat(?:ing|ed)?\b`,
	`\bvibration\b`,
	`\becam\b`,
	`\beicas\b`,
	`\bcas\b`,
	`\bwarning\b`,
	`\bsmoke\b`,
	`\binoperative\b`,
	`\binop\b`,
	`\bunserviceable\b`,
	`\bu/s\b`,
	`\bdefect(?:ive)?\b`,
	`\bdamage(?:d)?\b`,
	`\bbroken\b`,
	`\bcrack(?:ed)?\b`,
	`\bcorrosion\b`,
	`\berror\b`,
	`\babnormal\b`,
	`\bmalfunction\b`,
	`\bnot\s+working\b`,
	`\bout\s+of\s+tolerance\b`,
	`\bexceed(?:ed|s)?\s+limit\b`,
	`\bhigh\s+(?:temperature|pressure|vibration)\b`,
	`\blow\s+(?:pressure|oil|fuel)\b`,
	`\bcontamination\b`,
	`\bwear\s+(?:beyond|exceeds)\b`,
	`\bnoise\b`,
	`\bunusual\s+(?:noise|sound|smell)\b`,
}

// NonDefectClassifier decides whether a work order describes a genuine
// technical defect or routine activity. It gates all downstream analysis.
type NonDefectClassifier struct {
	nonDefect *regexp.Regexp
	override  *regexp.Regexp
}

// Verdict carries the classification plus the matched term for the audit trail.
type Verdict struct {
	IsDefect bool
	Term     string
	Reason   string
}

// NewNonDefectClassifier compiles the keyword groups.
func NewNonDefectClassifier() *NonDefectClassifier {
	return &NonDefectClassifier{
		nonDefect: regexp.MustCompile(`(?i)` + strings.Join(nonDefectPatterns, "|")),
		override:  regexp.MustCompile(`(?i)` + strings.Join(defectOverridePatterns, "|")),
	}
}

// Classify inspects the combined description and rectification text.
// Override terms win over routine terms; text matching neither group is
// assumed to be a defect.
func (c *NonDefectClassifier) Classify(description, action string) Verdict {
	combined := strings.ToLower(description + " " + action)

	if term := c.override.FindString(combined); term != "" {
		return Verdict{IsDefect: true, Term: term, Reason: "defect indicator: " + term}
	}
	if term := c.nonDefect.FindString(combined); term != "" {
		return Verdict{IsDefect: false, Term: term, Reason: "routine maintenance: " + term}
	}
	return Verdict{IsDefect: true, Reason: "no routine indicator found"}
}
