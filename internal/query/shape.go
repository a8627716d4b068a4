package query

// The variant endpoint accepts three targeted query shapes. Anything else
// is a broad scan and never reaches the disclosure gate.

// IsGenomicAlleleQuery reports a short-form allele lookup
// (e.g. NC_000017.11:g.43057063G>A).
func (p RequestParams) IsGenomicAlleleQuery() bool {
	_, ok := p.Query.RequestParameters["genomicAlleleShortForm"]
	return ok
}

// IsAminoAcidChangeQuery reports a protein-level lookup (e.g. p.Val600Glu).
func (p RequestParams) IsAminoAcidChangeQuery() bool {
	_, ok := p.Query.RequestParameters["aminoacidChange"]
	return ok
}

// IsSequenceQuery reports an exact sequence query: a single start
// coordinate plus reference name and both base strings, with no end (an
// end coordinate makes it a range or bracket query).
func (p RequestParams) IsSequenceQuery() bool {
	params := p.Query.RequestParameters
	if _, ok := params["end"]; ok {
		return false
	}
	for _, key := range []string{"referenceName", "alternateBases", "referenceBases"} {
		if _, ok := params[key]; !ok {
			return false
		}
	}
	start, ok := params["start"]
	if !ok {
		return false
	}
	coords, ok := start.([]int)
	return ok && len(coords) == 1
}

// Targeted reports whether the query pinpoints a specific variant. Only
// targeted queries are eligible for record-level disclosure.
func (p RequestParams) Targeted() bool {
	return p.IsGenomicAlleleQuery() || p.IsAminoAcidChangeQuery() || p.IsSequenceQuery()
}
