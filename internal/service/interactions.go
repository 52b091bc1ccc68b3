package service

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// InteractionTable is the catalogue of known pregnancy-specific pairwise
// interactions and single-medication contraindications. The table is built
// once at startup and read-only thereafter.
type InteractionTable struct {
	logger *logrus.Logger
	pairs  map[string]*domain.InteractionRule
	solos  map[string]*domain.InteractionRule
}

// NewInteractionTable creates the interaction table with the built-in
// pregnancy interaction rules loaded.
func NewInteractionTable(logger *logrus.Logger) *InteractionTable {
	t := &InteractionTable{
		logger: logger,
		pairs:  make(map[string]*domain.InteractionRule),
		solos:  make(map[string]*domain.InteractionRule),
	}
	t.initializeRules()
	return t
}

// pairKey builds the canonical unordered-pair key: both names lowercased
// and sorted lexicographically, so (A,B) and (B,A) hit the same rule.
func pairKey(a, b string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// LookupPair returns the interaction rule for an unordered pair of generic
// medication names. An absent rule is not an error, just "no known
// interaction".
func (t *InteractionTable) LookupPair(nameA, nameB string) (*domain.InteractionRule, bool) {
	rule, ok := t.pairs[pairKey(nameA, nameB)]
	return rule, ok
}

// LookupSolo returns the single-medication contraindication rule for a
// generic name, if one is curated.
func (t *InteractionTable) LookupSolo(name string) (*domain.InteractionRule, bool) {
	rule, ok := t.solos[strings.ToLower(strings.TrimSpace(name))]
	return rule, ok
}

// FindInteractions runs pairwise and solo interaction detection over the
// medication list for the given week. Every unordered pair is checked
// exactly once; each category D/X medication is also checked alone, with a
// default rule synthesized when no curated entry exists so the flag is
// never silently skipped. Empty input returns an empty list without error.
//
// The result is order-independent: inputs are sorted by generic name before
// detection, so [A,B] and [B,A] produce identical findings.
func (t *InteractionTable) FindInteractions(records []*domain.MedicationRecord, week int) ([]domain.InteractionFinding, error) {
	trimester, err := TrimesterOf(week)
	if err != nil {
		return nil, err
	}

	findings := make([]domain.InteractionFinding, 0)
	if len(records) == 0 {
		return findings, nil
	}

	sorted := make([]*domain.MedicationRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].GenericName < sorted[j].GenericName
	})

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			rule, ok := t.LookupPair(sorted[i].GenericName, sorted[j].GenericName)
			if !ok {
				continue
			}
			findings = append(findings, newFinding(rule, trimester, false))
		}
	}

	for _, rec := range sorted {
		if !rec.Category.IsSeriousRisk() {
			continue
		}
		if rule, ok := t.LookupSolo(rec.GenericName); ok {
			findings = append(findings, newFinding(rule, trimester, false))
			continue
		}
		findings = append(findings, newFinding(t.synthesizeSoloRule(rec, trimester), trimester, true))
	}

	t.logger.WithFields(logrus.Fields{
		"medications": len(records),
		"week":        week,
		"findings":    len(findings),
	}).Debug("Completed interaction detection")

	return findings, nil
}

// newFinding materializes a rule into an assessment finding at the
// effective trimester severity.
func newFinding(rule *domain.InteractionRule, trimester domain.Trimester, synthesized bool) domain.InteractionFinding {
	return domain.InteractionFinding{
		RuleID:         rule.ID,
		Medications:    rule.Medications,
		Severity:       rule.SeverityAt(trimester),
		Trimester:      trimester,
		MaternalEffect: rule.MaternalEffect,
		FetalEffect:    rule.FetalEffect,
		NeonatalEffect: rule.NeonatalEffect,
		Alternatives:   rule.Alternatives,
		Synthesized:    synthesized,
	}
}

// synthesizeSoloRule builds the default contraindication rule for a
// category D/X medication with no curated table entry: severity critical
// for X, high for D. Trimester-override alternatives are carried through
// when the record declares them.
func (t *InteractionTable) synthesizeSoloRule(rec *domain.MedicationRecord, trimester domain.Trimester) *domain.InteractionRule {
	severity := domain.SeverityHigh
	if rec.Category == domain.CategoryX {
		severity = domain.SeverityCritical
	}

	rule := &domain.InteractionRule{
		ID:          "solo:" + rec.GenericName,
		Medications: []string{rec.GenericName},
		Severity:    severity,
		FetalEffect: rec.Category.Description(),
	}
	if ov, ok := rec.OverrideFor(trimester); ok && len(ov.Alternatives) > 0 {
		rule.Alternatives = map[string][]string{rec.GenericName: ov.Alternatives}
	}
	return rule
}

// addPair registers a pairwise rule; the key is order-insensitive.
func (t *InteractionTable) addPair(rule *domain.InteractionRule) {
	t.pairs[pairKey(rule.Medications[0], rule.Medications[1])] = rule
}

// addSolo registers a single-medication contraindication rule.
func (t *InteractionTable) addSolo(rule *domain.InteractionRule) {
	t.solos[strings.ToLower(rule.Medications[0])] = rule
}

// initializeRules loads the built-in pregnancy interaction catalogue.
func (t *InteractionTable) initializeRules() {
	t.addPair(&domain.InteractionRule{
		ID:          "nsaid-ace-inhibitor",
		Medications: []string{"ibuprofen", "lisinopril"},
		Severity:    domain.SeverityHigh,
		TrimesterRisk: map[domain.Trimester]domain.Severity{
			domain.TrimesterSecond: domain.SeverityCritical,
			domain.TrimesterThird:  domain.SeverityCritical,
		},
		MaternalEffect: "Additive renal impairment and blood pressure dysregulation",
		FetalEffect:    "Oligohydramnios, fetal renal failure, premature ductus arteriosus closure",
		NeonatalEffect: "Neonatal renal insufficiency",
		Alternatives: map[string][]string{
			"ibuprofen":  {"acetaminophen"},
			"lisinopril": {"labetalol", "methyldopa", "nifedipine"},
		},
	})

	t.addPair(&domain.InteractionRule{
		ID:          "naproxen-ace-inhibitor",
		Medications: []string{"naproxen", "lisinopril"},
		Severity:    domain.SeverityHigh,
		TrimesterRisk: map[domain.Trimester]domain.Severity{
			domain.TrimesterThird: domain.SeverityCritical,
		},
		MaternalEffect: "Additive renal impairment",
		FetalEffect:    "Oligohydramnios, premature ductus arteriosus closure",
		Alternatives: map[string][]string{
			"naproxen":   {"acetaminophen"},
			"lisinopril": {"labetalol", "methyldopa"},
		},
	})

	t.addPair(&domain.InteractionRule{
		ID:             "aspirin-warfarin",
		Medications:    []string{"aspirin", "warfarin"},
		Severity:       domain.SeverityCritical,
		MaternalEffect: "Major hemorrhage risk from combined antiplatelet and anticoagulant effect",
		FetalEffect:    "Fetal hemorrhage, warfarin embryopathy",
		NeonatalEffect: "Neonatal bleeding",
		Alternatives: map[string][]string{
			"warfarin": {"enoxaparin", "heparin"},
		},
	})

	t.addPair(&domain.InteractionRule{
		ID:          "ssri-nsaid-bleeding",
		Medications: []string{"sertraline", "ibuprofen"},
		Severity:    domain.SeverityModerate,
		TrimesterRisk: map[domain.Trimester]domain.Severity{
			domain.TrimesterThird: domain.SeverityHigh,
		},
		MaternalEffect: "Increased gastrointestinal and peripartum bleeding risk",
		FetalEffect:    "Premature ductus arteriosus closure in third trimester",
		Alternatives: map[string][]string{
			"ibuprofen": {"acetaminophen"},
		},
	})

	t.addPair(&domain.InteractionRule{
		ID:             "methotrexate-nsaid",
		Medications:    []string{"methotrexate", "ibuprofen"},
		Severity:       domain.SeverityCritical,
		MaternalEffect: "Reduced methotrexate clearance, hematologic toxicity",
		FetalEffect:    "Methotrexate embryopathy compounded by NSAID exposure",
	})

	t.addPair(&domain.InteractionRule{
		ID:             "lithium-nsaid",
		Medications:    []string{"lithium", "ibuprofen"},
		Severity:       domain.SeverityHigh,
		MaternalEffect: "Elevated lithium levels, maternal lithium toxicity",
		FetalEffect:    "Increased fetal lithium exposure, cardiac malformation risk",
		Alternatives: map[string][]string{
			"ibuprofen": {"acetaminophen"},
		},
	})

	t.addPair(&domain.InteractionRule{
		ID:             "valproate-lamotrigine",
		Medications:    []string{"valproate", "lamotrigine"},
		Severity:       domain.SeverityHigh,
		MaternalEffect: "Doubled lamotrigine levels, rash and toxicity risk",
		FetalEffect:    "Compounded anticonvulsant teratogenicity",
		Alternatives: map[string][]string{
			"valproate": {"lamotrigine", "levetiracetam"},
		},
	})

	t.addPair(&domain.InteractionRule{
		ID:             "fluoxetine-aspirin",
		Medications:    []string{"fluoxetine", "aspirin"},
		Severity:       domain.SeverityModerate,
		MaternalEffect: "Increased bleeding risk from combined serotonergic and antiplatelet effect",
	})

	// Curated solo contraindications. Category X/D medications without an
	// entry here still get a synthesized finding at detection time.
	t.addSolo(&domain.InteractionRule{
		ID:           "solo:isotretinoin",
		Medications:  []string{"isotretinoin"},
		Severity:     domain.SeverityCritical,
		FetalEffect:  "Retinoid embryopathy: craniofacial, cardiac, thymic and CNS malformations",
		Alternatives: map[string][]string{"isotretinoin": {"topical benzoyl peroxide", "topical erythromycin"}},
	})

	t.addSolo(&domain.InteractionRule{
		ID:          "solo:warfarin",
		Medications: []string{"warfarin"},
		Severity:    domain.SeverityCritical,
		TrimesterRisk: map[domain.Trimester]domain.Severity{
			domain.TrimesterSecond: domain.SeverityHigh,
		},
		FetalEffect:    "Warfarin embryopathy in first trimester, fetal hemorrhage near term",
		NeonatalEffect: "Neonatal bleeding",
		Alternatives:   map[string][]string{"warfarin": {"enoxaparin", "heparin"}},
	})

	t.addSolo(&domain.InteractionRule{
		ID:          "solo:methotrexate",
		Medications: []string{"methotrexate"},
		Severity:    domain.SeverityCritical,
		FetalEffect: "Methotrexate embryopathy, pregnancy loss",
	})

	t.addSolo(&domain.InteractionRule{
		ID:          "solo:valproate",
		Medications: []string{"valproate"},
		Severity:    domain.SeverityCritical,
		TrimesterRisk: map[domain.Trimester]domain.Severity{
			domain.TrimesterThird: domain.SeverityHigh,
		},
		FetalEffect:  "Neural tube defects, cognitive impairment",
		Alternatives: map[string][]string{"valproate": {"lamotrigine", "levetiracetam"}},
	})

	t.logger.WithFields(logrus.Fields{
		"pair_rules": len(t.pairs),
		"solo_rules": len(t.solos),
	}).Info("Initialized pregnancy interaction rules")
}

// RuleCount returns the number of curated rules, for diagnostics.
func (t *InteractionTable) RuleCount() (pairs, solos int) {
	return len(t.pairs), len(t.solos)
}
