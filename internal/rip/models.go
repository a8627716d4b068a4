package rip

import (
	"encoding/json"

	pkgstrings "beacon/pkg/platform/strings"
)

// CaseLevelDatum links a variant observation to the sample (and therefore the
// individual) it was observed in.
type CaseLevelDatum struct {
	BiosampleID  string          `json:"biosampleId"`
	IndividualID string          `json:"individualId,omitempty"`
	Zygosity     json.RawMessage `json:"zygosity,omitempty"`
}

// CandidateRecord is a variant record produced by the query layer, borrowed
// for the duration of one Evaluate call. Only the allele frequency and the
// case-level associations matter to the engine; the remaining payload is
// carried opaquely so the transport layer can return it untouched.
type CandidateRecord struct {
	VariantInternalID   string           `json:"variantInternalId,omitempty"`
	AlleleFrequency     float64          `json:"alleleFrequency"`
	CaseLevelData       []CaseLevelDatum `json:"caseLevelData,omitempty"`
	Variation           json.RawMessage  `json:"variation,omitempty"`
	MolecularAttributes json.RawMessage  `json:"molecularAttributes,omitempty"`
}

// ImplicatedIndividuals returns the distinct individual identifiers carried
// by the record's case-level data, in first-seen order. The order is part of
// the ledger protocol: debits are applied in this order and rolled back over
// the same prefix on failure.
//
// When a case-level entry has no explicit individual ID the biosample ID
// stands in for it, matching how the underlying collections are keyed.
func (r CandidateRecord) ImplicatedIndividuals() []string {
	if len(r.CaseLevelData) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.CaseLevelData))
	for _, c := range r.CaseLevelData {
		if c.IndividualID != "" {
			ids = append(ids, c.IndividualID)
			continue
		}
		ids = append(ids, c.BiosampleID)
	}
	return pkgstrings.DedupeAndTrim(ids)
}

// Decision is the outcome of the eligibility state machine for one
// (user, dataset, query) evaluation.
type Decision string

const (
	// DecisionBypassed means the dataset is openly accessible and the input
	// passed through unchanged.
	DecisionBypassed Decision = "bypassed"
	// DecisionDeniedAnonymous means no authenticated identity was presented.
	DecisionDeniedAnonymous Decision = "denied_anonymous"
	// DecisionDeniedNotTargeted means the query is not of an at-risk shape.
	DecisionDeniedNotTargeted Decision = "denied_not_targeted"
	// DecisionEvaluated means the ledger protocol ran (or a cached response
	// was returned).
	DecisionEvaluated Decision = "evaluated"
)

// EvaluateRequest carries one (user, dataset, query) evaluation into the
// decision gate. The eligibility flags come from external collaborators: the
// dataset-access resolver and the query-shape classifier.
type EvaluateRequest struct {
	UserID      string
	DatasetID   string
	Fingerprint string
	Records     []CandidateRecord

	Authenticated bool
	DatasetOpen   bool
	Targeted      bool
}

// EvaluateResult is the gate's answer: the disclosable record list plus
// observability fields. A withheld record is simply absent from Records; the
// result never says why.
type EvaluateResult struct {
	Decision Decision
	Records  []CandidateRecord
	CacheHit bool
	Dropped  int
}
