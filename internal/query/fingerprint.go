package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/gowebpki/jcs"

	pkgerrors "beacon/pkg/errors"
)

// summary is the canonical projection of a request used for fingerprinting.
// Slices are sorted copies, so two requests differing only in declaration
// order collapse to the same summary.
type summary struct {
	APIVersion                string         `json:"apiVersion"`
	RequestedSchemas          []string       `json:"requestedSchemas"`
	Filters                   []string       `json:"filters"`
	RequestParameters         map[string]any `json:"requestParameters"`
	IncludeResultsetResponses string         `json:"includeResultsetResponses"`
	Pagination                Pagination     `json:"pagination"`
	RequestedGranularity      Granularity    `json:"requestedGranularity"`
	TestMode                  bool           `json:"testMode"`
}

// Fingerprint derives the stable identity of a request: the canonical
// summary serialized under RFC 8785 and hashed. Two semantically identical
// requests always produce the same fingerprint, which is what keys the
// response history.
func Fingerprint(p RequestParams) (string, error) {
	schemas := make([]string, 0, len(p.Meta.RequestedSchemas))
	schemas = append(schemas, p.Meta.RequestedSchemas...)
	sort.Strings(schemas)

	filters := make([]string, 0, len(p.Query.Filters))
	for _, f := range p.Query.Filters {
		filters = append(filters, f.Canonical())
	}
	sort.Strings(filters)

	s := summary{
		APIVersion:                p.Meta.APIVersion,
		RequestedSchemas:          schemas,
		Filters:                   filters,
		RequestParameters:         p.Query.RequestParameters,
		IncludeResultsetResponses: p.Query.IncludeResultsetResponses,
		Pagination:                p.Query.Pagination,
		RequestedGranularity:      p.Query.RequestedGranularity,
		TestMode:                  p.Query.TestMode,
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "marshal query summary")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "canonicalize query summary")
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
