package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// ConditionRegistry holds the maternal condition profiles and classifies
// medication appropriateness against them. Profiles are loaded once and
// read-only thereafter.
type ConditionRegistry struct {
	logger       *logrus.Logger
	profiles     map[string]*domain.MaternalConditionProfile
	interactions *InteractionTable
}

// NewConditionRegistry creates the registry with the built-in condition
// profiles loaded. The interaction table is consulted when judging whether
// a regimen is optimal.
func NewConditionRegistry(logger *logrus.Logger, interactions *InteractionTable) *ConditionRegistry {
	r := &ConditionRegistry{
		logger:       logger,
		profiles:     make(map[string]*domain.MaternalConditionProfile),
		interactions: interactions,
	}
	r.initializeProfiles()
	return r
}

// Lookup returns the profile for a condition name, case-insensitively.
func (r *ConditionRegistry) Lookup(condition string) (*domain.MaternalConditionProfile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(condition))]
	return p, ok
}

// Classify determines a medication's appropriateness for a condition.
//
// Matching is deliberately loose: case-insensitive substring containment in
// either direction against the condition's lists, because medications are
// often referenced with differing formulation or salt names. The known
// trade-off is false positives on substring collisions; a stricter
// alias-table match would change observable behavior and is deferred to a
// product decision.
func (r *ConditionRegistry) Classify(medicationName, condition string) (domain.RegimenStatus, error) {
	profile, ok := r.Lookup(condition)
	if !ok {
		return domain.StatusUnknown, fmt.Errorf("condition %q: %w", condition, domain.ErrUnknownCondition)
	}
	return classifyAgainstProfile(medicationName, profile), nil
}

func classifyAgainstProfile(medicationName string, profile *domain.MaternalConditionProfile) domain.RegimenStatus {
	name := strings.ToLower(strings.TrimSpace(medicationName))
	if containsLoose(profile.Avoid, name) {
		return domain.StatusAvoid
	}
	if containsLoose(profile.FirstLine, name) {
		return domain.StatusRecommended
	}
	if containsLoose(profile.SecondLine, name) {
		return domain.StatusAcceptable
	}
	return domain.StatusUnknown
}

// containsLoose reports whether the name matches any list entry by
// substring containment in either direction, case-insensitively.
func containsLoose(list []string, name string) bool {
	for _, entry := range list {
		entry = strings.ToLower(entry)
		if strings.Contains(entry, name) || strings.Contains(name, entry) {
			return true
		}
	}
	return false
}

// AssessRegimen classifies every medication against the condition and
// derives the regimen-level flags: NeedsChange when any medication
// classifies as avoid, Optimal when every medication is recommended and no
// pairwise interaction triggers. Fails with ErrUnknownCondition when the
// condition has no profile and ErrOutOfRangeWeek on an invalid week.
func (r *ConditionRegistry) AssessRegimen(records []*domain.MedicationRecord, condition string, week int) (*domain.RegimenAssessment, error) {
	trimester, err := TrimesterOf(week)
	if err != nil {
		return nil, err
	}

	profile, ok := r.Lookup(condition)
	if !ok {
		return nil, fmt.Errorf("condition %q: %w", condition, domain.ErrUnknownCondition)
	}

	guidance := profile.TrimesterGuidance[trimester]

	assessment := &domain.RegimenAssessment{
		Condition: profile.Name,
		Findings:  make([]domain.ConditionFinding, 0, len(records)),
		Optimal:   true,
	}

	for _, rec := range records {
		status := classifyAgainstProfile(rec.GenericName, profile)
		assessment.Findings = append(assessment.Findings, domain.ConditionFinding{
			Medication: rec.GenericName,
			Condition:  profile.Name,
			Status:     status,
			Guidance:   guidance,
		})

		switch status {
		case domain.StatusAvoid:
			assessment.NeedsChange = true
			assessment.Optimal = false
			assessment.Recommendations = append(assessment.Recommendations, domain.Recommendation{
				Priority:   domain.PriorityHigh,
				Medication: rec.GenericName,
				Action:     "discontinue and substitute",
				Rationale:  fmt.Sprintf("%s is listed as avoid for %s", rec.GenericName, profile.Name),
			})
		case domain.StatusUnknown:
			assessment.Optimal = false
			assessment.Recommendations = append(assessment.Recommendations, domain.Recommendation{
				Priority:   domain.PriorityModerate,
				Medication: rec.GenericName,
				Action:     "review with provider",
				Rationale:  fmt.Sprintf("%s is not an established therapy for %s", rec.GenericName, profile.Name),
			})
		case domain.StatusAcceptable:
			assessment.Optimal = false
			assessment.Recommendations = append(assessment.Recommendations, domain.Recommendation{
				Priority:   domain.PriorityInformational,
				Medication: rec.GenericName,
				Action:     "consider first-line alternative",
				Rationale:  fmt.Sprintf("%s is second-line for %s", rec.GenericName, profile.Name),
			})
		}
	}

	if assessment.Optimal {
		findings, err := r.interactions.FindInteractions(records, week)
		if err != nil {
			return nil, err
		}
		for _, f := range findings {
			if len(f.Medications) == 2 {
				assessment.Optimal = false
				break
			}
		}
	}

	r.logger.WithFields(logrus.Fields{
		"condition":    profile.Name,
		"medications":  len(records),
		"needs_change": assessment.NeedsChange,
		"optimal":      assessment.Optimal,
	}).Debug("Completed regimen assessment")

	return assessment, nil
}

// addProfile registers a profile under its lowercase name.
func (r *ConditionRegistry) addProfile(p *domain.MaternalConditionProfile) {
	r.profiles[strings.ToLower(p.Name)] = p
}

// initializeProfiles loads the built-in maternal condition profiles.
// Every profile defines guidance for all three trimesters.
func (r *ConditionRegistry) initializeProfiles() {
	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "hypertension",
		FirstLine:  []string{"labetalol", "methyldopa", "nifedipine"},
		SecondLine: []string{"hydralazine"},
		Avoid:      []string{"lisinopril", "losartan", "atenolol"},
		Risks: []string{
			"Uncontrolled hypertension raises preeclampsia and growth restriction risk",
			"ACE inhibitors and ARBs cause fetal renal injury",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "Switch off ACE inhibitors and ARBs before or as soon as pregnancy is confirmed",
			domain.TrimesterSecond: "Target blood pressure below 140/90 with first-line agents",
			domain.TrimesterThird:  "Monitor closely for preeclampsia; avoid abrupt pressure drops",
		},
	})

	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "gestational diabetes",
		FirstLine:  []string{"insulin"},
		SecondLine: []string{"metformin", "glyburide"},
		Avoid:      []string{"atorvastatin"},
		Risks: []string{
			"Poor glycemic control raises macrosomia and neonatal hypoglycemia risk",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "Establish glycemic targets early; insulin preferred when diet fails",
			domain.TrimesterSecond: "Insulin requirements typically rise; adjust dosing frequently",
			domain.TrimesterThird:  "Intensify monitoring for macrosomia; plan delivery glycemic management",
		},
	})

	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "hypothyroidism",
		FirstLine:  []string{"levothyroxine"},
		SecondLine: []string{},
		Avoid:      []string{"methimazole"},
		Risks: []string{
			"Untreated hypothyroidism impairs fetal neurodevelopment",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "Levothyroxine requirement rises ~30% in early pregnancy; check TSH every 4 weeks",
			domain.TrimesterSecond: "Continue levothyroxine; re-titrate against trimester-specific TSH ranges",
			domain.TrimesterThird:  "Maintain dose; plan postpartum dose reduction",
		},
	})

	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "depression",
		FirstLine:  []string{"sertraline"},
		SecondLine: []string{"fluoxetine", "citalopram"},
		Avoid:      []string{"paroxetine", "lithium", "valproate"},
		Risks: []string{
			"Untreated depression carries its own maternal and fetal risk",
			"Paroxetine is associated with cardiac malformations",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "Do not stop treatment abruptly; prefer sertraline when starting therapy",
			domain.TrimesterSecond: "Continue effective therapy at the lowest effective dose",
			domain.TrimesterThird:  "Anticipate transient neonatal adaptation symptoms with SSRIs near term",
		},
	})

	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "asthma",
		FirstLine:  []string{"albuterol", "budesonide"},
		SecondLine: []string{"prednisone"},
		Avoid:      []string{},
		Risks: []string{
			"Uncontrolled asthma is more dangerous to the fetus than controller therapy",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "Maintain controller therapy; budesonide is the preferred inhaled corticosteroid",
			domain.TrimesterSecond: "Step therapy as outside pregnancy; monitor control monthly",
			domain.TrimesterThird:  "Ensure control before delivery; acute exacerbations risk fetal hypoxia",
		},
	})

	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "epilepsy",
		FirstLine:  []string{"lamotrigine", "levetiracetam"},
		SecondLine: []string{"carbamazepine"},
		Avoid:      []string{"valproate"},
		Risks: []string{
			"Valproate carries the highest teratogenic risk of common anticonvulsants",
			"Seizures themselves endanger the pregnancy; do not stop therapy without substitution",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "High-dose folate supplementation; switch off valproate where feasible",
			domain.TrimesterSecond: "Monitor anticonvulsant levels; lamotrigine clearance rises sharply",
			domain.TrimesterThird:  "Re-check levels monthly; plan peripartum dosing",
		},
	})

	r.addProfile(&domain.MaternalConditionProfile{
		Name:       "urinary tract infection",
		FirstLine:  []string{"nitrofurantoin", "amoxicillin"},
		SecondLine: []string{"cephalexin"},
		Avoid:      []string{"doxycycline", "ciprofloxacin"},
		Risks: []string{
			"Untreated bacteriuria progresses to pyelonephritis and preterm labor",
			"Tetracyclines stain fetal teeth and impair bone growth",
		},
		TrimesterGuidance: map[domain.Trimester]string{
			domain.TrimesterFirst:  "Treat asymptomatic bacteriuria; avoid nitrofurantoin only if alternatives exist",
			domain.TrimesterSecond: "Nitrofurantoin and beta-lactams are preferred",
			domain.TrimesterThird:  "Avoid nitrofurantoin at term due to neonatal hemolysis risk",
		},
	})

	r.logger.WithField("profile_count", len(r.profiles)).Info("Initialized maternal condition profiles")
}

// ProfileNames returns the registered condition names, for the API surface.
func (r *ConditionRegistry) ProfileNames() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
