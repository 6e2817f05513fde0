package domain

import "strings"

// ClassifyInput is the raw material for classification: the tenant's chosen
// category, free-text description, and self-declared urgency.
type ClassifyInput struct {
	Category        Category
	Description     string
	DeclaredUrgency Priority
}

// Classification is the deterministic output of Classify.
type Classification struct {
	Category      Category
	Priority      Priority
	IsEmergency   bool
	EmergencyType EmergencyType
}

// emergencyKeywordRule matches free-text against an emergency type. Rules are
// evaluated in order; the first match wins, so the most severe types come
// first.
type emergencyKeywordRule struct {
	emergencyType EmergencyType
	keywords      []string
}

var emergencyKeywordRules = []emergencyKeywordRule{
	{EmergencySafety, []string{"gas leak", "carbon monoxide", "fire", "smoke", "explosion", "collapsed", "injury"}},
	{EmergencySecurity, []string{"break-in", "break in", "burglary", "broken lock", "door won't lock", "door wont lock", "intruder", "shattered window"}},
	{EmergencyWater, []string{"flood", "flooding", "burst pipe", "sewage", "water everywhere", "major leak", "ceiling leak"}},
	{EmergencyElectrical, []string{"sparks", "sparking", "exposed wire", "exposed wiring", "power out", "no power", "burning smell"}},
	{EmergencyStructural, []string{"ceiling collapse", "wall crack", "foundation", "roof caved", "unstable"}},
	{EmergencyHVAC, []string{"no heat", "no heating", "furnace dead", "freezing", "no cooling in extreme"}},
}

// categoryEmergencyDefaults maps categories whose declared-urgent requests are
// treated as emergencies of the corresponding type.
var categoryEmergencyDefaults = map[Category]EmergencyType{
	CategoryPlumbing:   EmergencyWater,
	CategoryElectrical: EmergencyElectrical,
	CategoryHVAC:       EmergencyHVAC,
	CategoryStructural: EmergencyStructural,
	CategorySecurity:   EmergencySecurity,
}

// categoryBasePriority is the floor priority per category.
var categoryBasePriority = map[Category]Priority{
	CategoryPlumbing:    PriorityMedium,
	CategoryElectrical:  PriorityMedium,
	CategoryHVAC:        PriorityMedium,
	CategoryStructural:  PriorityHigh,
	CategorySecurity:    PriorityHigh,
	CategoryAppliance:   PriorityLow,
	CategoryPest:        PriorityLow,
	CategoryLandscaping: PriorityLow,
	CategoryCleaning:    PriorityLow,
	CategoryOther:       PriorityLow,
}

// Classify assigns category, priority, and the emergency flag/type from a
// deterministic rule match. Ties between the rule outcome and the tenant's
// declared urgency resolve toward the more urgent of the two.
func Classify(in ClassifyInput) Classification {
	category := in.Category
	if !ValidCategory(category) {
		category = CategoryOther
	}

	text := strings.ToLower(in.Description)

	emergencyType := EmergencyNone
	for _, rule := range emergencyKeywordRules {
		if containsAny(text, rule.keywords) {
			emergencyType = rule.emergencyType
			break
		}
	}

	// A tenant declaring urgent in a hazardous category counts as an
	// emergency even without a keyword hit.
	if emergencyType == EmergencyNone && in.DeclaredUrgency == PriorityUrgent {
		if defaultType, ok := categoryEmergencyDefaults[category]; ok {
			emergencyType = defaultType
		}
	}

	priority := categoryBasePriority[category]
	if priority == "" {
		priority = PriorityLow
	}
	if ValidPriority(in.DeclaredUrgency) && moreUrgent(in.DeclaredUrgency, priority) {
		priority = in.DeclaredUrgency
	}

	isEmergency := emergencyType != EmergencyNone
	if isEmergency {
		priority = PriorityUrgent
	}

	return Classification{
		Category:      category,
		Priority:      priority,
		IsEmergency:   isEmergency,
		EmergencyType: emergencyType,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
