package extraction

import "fmt"

// schemas holds the static configuration for the six legal categories.
// Instructions spell out the exact JSON shape because downstream completeness
// scoring checks the required top-level fields.
var schemas = map[string]Schema{
	CategoryDefinitions: {
		Category:       CategoryDefinitions,
		RequiredFields: []string{"terms"},
		Queries: []string{
			"definitions, defined terms, meanings, interpretation",
			"glossary of terms",
		},
		WidenQueries: []string{
			"definitions, defined terms, meanings, interpretation, glossary",
			"the meaning given to words and expressions in this document",
		},
		Instruction: `Extract all defined terms and their definitions. Format as:
{
    "terms": [
        {"term": "term name", "definition": "definition text", "reference": "section/page"},
        ...
    ],
    "confidence": <number between 0 and 100>
}`,
	},
	CategoryEligibility: {
		Category:       CategoryEligibility,
		RequiredFields: []string{"criteria"},
		Queries: []string{
			"eligibility criteria, qualifications, requirements",
			"eligible, entitled, qualified persons",
		},
		WidenQueries: []string{
			"eligibility criteria, qualifications, requirements, entitled, eligible",
			"who may apply, who qualifies, conditions to be met",
		},
		Instruction: `Extract eligibility criteria and requirements. Format as:
{
    "criteria": [
        {"requirement": "requirement description", "details": "additional details", "reference": "section/page"},
        ...
    ],
    "exclusions": ["exclusion1", "exclusion2", ...],
    "confidence": <number between 0 and 100>
}`,
	},
	CategoryPayments: {
		Category:       CategoryPayments,
		RequiredFields: []string{"payment_types"},
		Queries: []string{
			"payment, amount, calculation, entitlement",
			"benefits, compensation, rates",
		},
		WidenQueries: []string{
			"payment, amount, calculation, entitlement, benefits, compensation",
			"how much is paid, when payments are made, payment formula",
		},
		Instruction: `Extract payment and entitlement information. Format as:
{
    "payment_types": [
        {"type": "payment type", "amount": "amount or formula", "frequency": "frequency", "reference": "section/page"},
        ...
    ],
    "calculation_method": "description of how payments are calculated",
    "confidence": <number between 0 and 100>
}`,
	},
	CategoryPenalties: {
		Category:       CategoryPenalties,
		RequiredFields: []string{"penalties"},
		Queries: []string{
			"penalty, sanctions, enforcement, violations",
			"offenses, punishment, fines",
		},
		WidenQueries: []string{
			"penalty, sanctions, enforcement, violations, offenses, punishment",
			"consequences of non-compliance, prosecution, liability",
		},
		Instruction: `Extract penalties and enforcement mechanisms. Format as:
{
    "penalties": [
        {"violation": "violation description", "penalty": "penalty description", "severity": "severity level", "reference": "section/page"},
        ...
    ],
    "enforcement_mechanisms": ["mechanism1", "mechanism2", ...],
    "enforcement_authority": "authority responsible for enforcement",
    "confidence": <number between 0 and 100>
}`,
	},
	CategoryObligations: {
		Category:       CategoryObligations,
		RequiredFields: []string{"obligations"},
		Queries: []string{
			"obligations, duties, responsibilities",
			"requirements, must, shall",
		},
		WidenQueries: []string{
			"obligations, duties, responsibilities, requirements, must, shall",
			"what each party is required to do",
		},
		Instruction: `Extract obligations and responsibilities. Format as:
{
    "obligations": [
        {"party": "obligated party", "obligation": "obligation description", "deadline": "deadline if any", "reference": "section/page"},
        ...
    ],
    "confidence": <number between 0 and 100>
}`,
	},
	CategoryRecordKeeping: {
		Category:       CategoryRecordKeeping,
		RequiredFields: []string{"requirements"},
		Queries: []string{
			"records, documentation, reporting",
			"maintain, keep, register",
		},
		WidenQueries: []string{
			"records, documentation, reporting, maintain, keep, register",
			"filing, submission, retention periods",
		},
		Instruction: `Extract record-keeping and reporting requirements. Format as:
{
    "requirements": [
        {"type": "record type", "retention_period": "how long to keep", "responsible_party": "who maintains", "reference": "section/page"},
        ...
    ],
    "reporting_obligations": ["reporting requirement1", "reporting requirement2", ...],
    "confidence": <number between 0 and 100>
}`,
	},
}

// SchemaFor returns the schema for a category.
func SchemaFor(category string) (Schema, error) {
	s, ok := schemas[category]
	if !ok {
		return Schema{}, fmt.Errorf("unknown category: %q", category)
	}
	return s, nil
}

// Schemas returns all category schemas in report order.
func Schemas() []Schema {
	out := make([]Schema, 0, len(schemas))
	for _, category := range Categories() {
		out = append(out, schemas[category])
	}
	return out
}
