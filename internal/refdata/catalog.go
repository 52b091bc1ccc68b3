// Package refdata provides the medication reference store: a built-in
// immutable catalogue, a Postgres-backed repository, and a circuit-breaker
// wrapper that degrades from the database to the built-in catalogue.
package refdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// Catalog is the built-in medication catalogue. It is loaded once at
// startup, validated, and read-only thereafter, so lookups are safe from
// any number of goroutines without locking.
type Catalog struct {
	byName map[string]*domain.MedicationRecord
	count  int
}

// NewCatalog builds and validates the built-in catalogue. A validation
// failure here is a reference data defect and aborts startup.
func NewCatalog(logger *logrus.Logger) (*Catalog, error) {
	records := builtinMedications()

	c := &Catalog{byName: make(map[string]*domain.MedicationRecord)}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("loading medication catalogue: %w", err)
		}
		c.byName[strings.ToLower(rec.GenericName)] = rec
		for _, brand := range rec.BrandNames {
			c.byName[strings.ToLower(brand)] = rec
		}
	}
	c.count = len(records)

	logger.WithFields(logrus.Fields{
		"medications": c.count,
		"aliases":     len(c.byName) - c.count,
	}).Info("Loaded built-in medication catalogue")

	return c, nil
}

// FindMedication resolves a generic name or brand alias, case-insensitively.
// Returns (nil, nil) for unknown names: a soft miss, not an error.
func (c *Catalog) FindMedication(_ context.Context, name string) (*domain.MedicationRecord, error) {
	rec, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

// Size returns the number of distinct medications in the catalogue.
func (c *Catalog) Size() int {
	return c.count
}

func boolPtr(b bool) *bool { return &b }

// builtinMedications returns the embedded reference data. Categories and
// trimester overrides reflect standard pregnancy compendia; this table is
// an offline data-preparation artifact, not a live clinical source.
func builtinMedications() []*domain.MedicationRecord {
	return []*domain.MedicationRecord{
		{
			GenericName: "acetaminophen",
			BrandNames:  []string{"Tylenol", "Panadol"},
			Category:    domain.CategoryB,
			DrugClass:   "analgesic",
		},
		{
			GenericName: "ibuprofen",
			BrandNames:  []string{"Advil", "Motrin"},
			Category:    domain.CategoryC,
			DrugClass:   "NSAID",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterThird: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Risk of premature ductus arteriosus closure after week 28", "Oligohydramnios with prolonged use"},
					Alternatives: []string{"acetaminophen"},
				},
			},
		},
		{
			GenericName: "naproxen",
			BrandNames:  []string{"Aleve", "Naprosyn"},
			Category:    domain.CategoryC,
			DrugClass:   "NSAID",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterThird: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Ductus arteriosus constriction in third trimester"},
					Alternatives: []string{"acetaminophen"},
				},
			},
		},
		{
			GenericName: "aspirin",
			BrandNames:  []string{"Bayer", "Ecotrin"},
			Category:    domain.CategoryC,
			DrugClass:   "NSAID",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterThird: {
					RiskTier: domain.SeverityHigh,
					Warnings: []string{"Full-dose aspirin raises peripartum bleeding risk"},
				},
			},
		},
		{
			GenericName: "amoxicillin",
			BrandNames:  []string{"Amoxil"},
			Category:    domain.CategoryB,
			DrugClass:   "penicillin antibiotic",
		},
		{
			GenericName: "azithromycin",
			BrandNames:  []string{"Zithromax"},
			Category:    domain.CategoryB,
			DrugClass:   "macrolide antibiotic",
		},
		{
			GenericName: "cephalexin",
			BrandNames:  []string{"Keflex"},
			Category:    domain.CategoryB,
			DrugClass:   "cephalosporin antibiotic",
		},
		{
			GenericName: "nitrofurantoin",
			BrandNames:  []string{"Macrobid", "Macrodantin"},
			Category:    domain.CategoryB,
			DrugClass:   "urinary antibiotic",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterThird: {
					RiskTier:     domain.SeverityModerate,
					Warnings:     []string{"Avoid at term (weeks 38-42): neonatal hemolytic anemia risk"},
					Alternatives: []string{"cephalexin"},
				},
			},
		},
		{
			GenericName: "doxycycline",
			BrandNames:  []string{"Vibramycin"},
			Category:    domain.CategoryD,
			DrugClass:   "tetracycline antibiotic",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterSecond: {
					Safe:         boolPtr(false),
					Warnings:     []string{"Permanent tooth discoloration and impaired bone growth"},
					Alternatives: []string{"amoxicillin", "azithromycin"},
				},
				domain.TrimesterThird: {
					Safe:         boolPtr(false),
					Warnings:     []string{"Permanent tooth discoloration and impaired bone growth"},
					Alternatives: []string{"amoxicillin", "azithromycin"},
				},
			},
		},
		{
			GenericName: "lisinopril",
			BrandNames:  []string{"Prinivil", "Zestril"},
			Category:    domain.CategoryD,
			DrugClass:   "ACE inhibitor",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterSecond: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Fetal renal failure, oligohydramnios, skull hypoplasia"},
					Alternatives: []string{"labetalol", "methyldopa", "nifedipine"},
				},
				domain.TrimesterThird: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Fetal renal failure, oligohydramnios, skull hypoplasia"},
					Alternatives: []string{"labetalol", "methyldopa", "nifedipine"},
				},
			},
		},
		{
			GenericName: "losartan",
			BrandNames:  []string{"Cozaar"},
			Category:    domain.CategoryD,
			DrugClass:   "angiotensin receptor blocker",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterSecond: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Fetal renal toxicity as with ACE inhibitors"},
					Alternatives: []string{"labetalol", "methyldopa"},
				},
				domain.TrimesterThird: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Fetal renal toxicity as with ACE inhibitors"},
					Alternatives: []string{"labetalol", "methyldopa"},
				},
			},
		},
		{
			GenericName: "labetalol",
			BrandNames:  []string{"Trandate"},
			Category:    domain.CategoryC,
			DrugClass:   "beta blocker",
		},
		{
			GenericName: "methyldopa",
			BrandNames:  []string{"Aldomet"},
			Category:    domain.CategoryB,
			DrugClass:   "central antihypertensive",
		},
		{
			GenericName: "nifedipine",
			BrandNames:  []string{"Procardia", "Adalat"},
			Category:    domain.CategoryC,
			DrugClass:   "calcium channel blocker",
		},
		{
			GenericName: "insulin",
			BrandNames:  []string{"Humulin", "Novolin", "Lantus"},
			Category:    domain.CategoryB,
			DrugClass:   "antidiabetic",
		},
		{
			GenericName: "metformin",
			BrandNames:  []string{"Glucophage"},
			Category:    domain.CategoryB,
			DrugClass:   "biguanide antidiabetic",
		},
		{
			GenericName: "glyburide",
			BrandNames:  []string{"DiaBeta", "Micronase"},
			Category:    domain.CategoryC,
			DrugClass:   "sulfonylurea antidiabetic",
		},
		{
			GenericName: "levothyroxine",
			BrandNames:  []string{"Synthroid", "Levoxyl"},
			Category:    domain.CategoryA,
			DrugClass:   "thyroid hormone",
		},
		{
			GenericName: "methimazole",
			BrandNames:  []string{"Tapazole"},
			Category:    domain.CategoryD,
			DrugClass:   "antithyroid",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterFirst: {
					Safe:     boolPtr(false),
					Warnings: []string{"Aplasia cutis and choanal atresia with first-trimester exposure"},
				},
			},
		},
		{
			GenericName: "sertraline",
			BrandNames:  []string{"Zoloft"},
			Category:    domain.CategoryC,
			DrugClass:   "SSRI antidepressant",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterThird: {
					Warnings: []string{"Transient neonatal adaptation syndrome possible near term"},
				},
			},
		},
		{
			GenericName: "fluoxetine",
			BrandNames:  []string{"Prozac"},
			Category:    domain.CategoryC,
			DrugClass:   "SSRI antidepressant",
		},
		{
			GenericName: "citalopram",
			BrandNames:  []string{"Celexa"},
			Category:    domain.CategoryC,
			DrugClass:   "SSRI antidepressant",
		},
		{
			GenericName: "paroxetine",
			BrandNames:  []string{"Paxil"},
			Category:    domain.CategoryD,
			DrugClass:   "SSRI antidepressant",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterFirst: {
					Safe:         boolPtr(false),
					Warnings:     []string{"Associated with fetal cardiac malformations"},
					Alternatives: []string{"sertraline"},
				},
			},
		},
		{
			GenericName: "lithium",
			BrandNames:  []string{"Lithobid"},
			Category:    domain.CategoryD,
			DrugClass:   "mood stabilizer",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterFirst: {
					Safe:     boolPtr(false),
					Warnings: []string{"Ebstein anomaly risk with first-trimester exposure"},
				},
			},
		},
		{
			GenericName: "valproate",
			BrandNames:  []string{"Depakote", "Depakene"},
			Category:    domain.CategoryX,
			DrugClass:   "anticonvulsant",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterFirst: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Neural tube defects; highest teratogenic risk of common anticonvulsants"},
					Alternatives: []string{"lamotrigine", "levetiracetam"},
				},
			},
		},
		{
			GenericName: "carbamazepine",
			BrandNames:  []string{"Tegretol"},
			Category:    domain.CategoryD,
			DrugClass:   "anticonvulsant",
		},
		{
			GenericName: "lamotrigine",
			BrandNames:  []string{"Lamictal"},
			Category:    domain.CategoryC,
			DrugClass:   "anticonvulsant",
		},
		{
			GenericName: "levetiracetam",
			BrandNames:  []string{"Keppra"},
			Category:    domain.CategoryC,
			DrugClass:   "anticonvulsant",
		},
		{
			GenericName: "warfarin",
			BrandNames:  []string{"Coumadin", "Jantoven"},
			Category:    domain.CategoryX,
			DrugClass:   "anticoagulant",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterFirst: {
					Safe:         boolPtr(false),
					RiskTier:     domain.SeverityCritical,
					Warnings:     []string{"Warfarin embryopathy with weeks 6-12 exposure"},
					Alternatives: []string{"enoxaparin", "heparin"},
				},
			},
		},
		{
			GenericName: "enoxaparin",
			BrandNames:  []string{"Lovenox"},
			Category:    domain.CategoryB,
			DrugClass:   "low molecular weight heparin",
		},
		{
			GenericName: "heparin",
			Category:    domain.CategoryC,
			DrugClass:   "anticoagulant",
		},
		{
			GenericName: "isotretinoin",
			BrandNames:  []string{"Accutane", "Claravis"},
			Category:    domain.CategoryX,
			DrugClass:   "retinoid",
			Overrides: map[domain.Trimester]domain.TrimesterOverride{
				domain.TrimesterFirst: {
					Safe:     boolPtr(false),
					RiskTier: domain.SeverityCritical,
					Warnings: []string{"Severe retinoid embryopathy; contraindicated throughout pregnancy"},
				},
			},
		},
		{
			GenericName: "methotrexate",
			BrandNames:  []string{"Trexall", "Rheumatrex"},
			Category:    domain.CategoryX,
			DrugClass:   "antimetabolite",
		},
		{
			GenericName: "atorvastatin",
			BrandNames:  []string{"Lipitor"},
			Category:    domain.CategoryX,
			DrugClass:   "statin",
		},
		{
			GenericName: "thalidomide",
			BrandNames:  []string{"Thalomid"},
			Category:    domain.CategoryX,
			DrugClass:   "immunomodulator",
		},
		{
			GenericName: "albuterol",
			BrandNames:  []string{"Ventolin", "ProAir"},
			Category:    domain.CategoryC,
			DrugClass:   "bronchodilator",
		},
		{
			GenericName: "budesonide",
			BrandNames:  []string{"Pulmicort"},
			Category:    domain.CategoryB,
			DrugClass:   "inhaled corticosteroid",
		},
		{
			GenericName: "prednisone",
			BrandNames:  []string{"Deltasone"},
			Category:    domain.CategoryC,
			DrugClass:   "corticosteroid",
		},
		{
			GenericName: "ondansetron",
			BrandNames:  []string{"Zofran"},
			Category:    domain.CategoryB,
			DrugClass:   "antiemetic",
		},
	}
}
