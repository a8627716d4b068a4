package query

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "beacon/pkg/errors"
)

func defaults() RequestParams {
	return Defaults("v2.0", GranularityRecord)
}

func TestParse_JSONBody(t *testing.T) {
	body := `{
		"meta": {"apiVersion": "v2.0", "requestedSchemas": ["beacon-variant-v2.0.0"]},
		"query": {
			"requestParameters": {
				"start": [43057063],
				"referenceName": "17",
				"alternateBases": "A",
				"referenceBases": "G"
			},
			"filters": [{"id": "NCIT:C20197"}],
			"includeResultsetResponses": "HIT",
			"pagination": {"skip": 0, "limit": 5},
			"requestedGranularity": "record",
			"testMode": false
		}
	}`
	r := httptest.NewRequest("POST", "/api/g_variants", strings.NewReader(body))

	p, err := Parse(r, defaults())
	require.NoError(t, err)

	assert.Equal(t, "v2.0", p.Meta.APIVersion)
	assert.Equal(t, []string{"beacon-variant-v2.0.0"}, p.Meta.RequestedSchemas)
	assert.Equal(t, []int{43057063}, p.Query.RequestParameters["start"])
	assert.Equal(t, "17", p.Query.RequestParameters["referenceName"])
	assert.Equal(t, 5, p.Query.Pagination.Limit)
	assert.Equal(t, GranularityRecord, p.Query.RequestedGranularity)
}

func TestParse_URLQuery(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/g_variants?start=43057063&referenceName=17&alternateBases=A&referenceBases=G&limit=3&requestedGranularity=count&filters=NCIT:C20197,NCIT:C16576",
		nil)

	p, err := Parse(r, defaults())
	require.NoError(t, err)

	assert.Equal(t, []int{43057063}, p.Query.RequestParameters["start"])
	assert.Equal(t, "A", p.Query.RequestParameters["alternateBases"])
	assert.Equal(t, 3, p.Query.Pagination.Limit)
	assert.Equal(t, GranularityCount, p.Query.RequestedGranularity)
	require.Len(t, p.Query.Filters, 2)
	assert.Equal(t, "NCIT:C20197", p.Query.Filters[0].ID)
}

func TestParse_BodylessPOSTFallsBackToDefaults(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/g_variants", nil)

	p, err := Parse(r, defaults())
	require.NoError(t, err)

	assert.Equal(t, IncludeResultsetsHit, p.Query.IncludeResultsetResponses)
	assert.Equal(t, Pagination{Skip: 0, Limit: 10}, p.Query.Pagination)
}

func TestParse_CoordinateShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []int
	}{
		{"scalar", `{"query":{"requestParameters":{"start": 100}}}`, []int{100}},
		{"list", `{"query":{"requestParameters":{"start": [100, 200]}}}`, []int{100, 200}},
		{"string", `{"query":{"requestParameters":{"start": "100,200"}}}`, []int{100, 200}},
		{"string list", `{"query":{"requestParameters":{"start": ["100"]}}}`, []int{100}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/g_variants", strings.NewReader(tc.body))
			p, err := Parse(r, defaults())
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Query.RequestParameters["start"])
		})
	}
}

func TestParse_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"malformed body", "/api/g_variants", `{"query":`},
		{"bad granularity", "/api/g_variants", `{"query":{"requestedGranularity":"full","includeResultsetResponses":"HIT"}}`},
		{"bad resultset mode", "/api/g_variants", `{"query":{"requestedGranularity":"record","includeResultsetResponses":"SOME"}}`},
		{"bad coordinate", "/api/g_variants", `{"query":{"requestedGranularity":"record","includeResultsetResponses":"HIT","requestParameters":{"start":"abc"}}}`},
		{"negative limit", "/api/g_variants", `{"query":{"requestedGranularity":"record","includeResultsetResponses":"HIT","pagination":{"limit":-1}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", tc.target, strings.NewReader(tc.body))
			_, err := Parse(r, defaults())
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))
		})
	}
}

func TestFilterCanonical(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"ontology term", Filter{ID: "NCIT:C20197"}, "NCIT:C20197"},
		{"default operator", Filter{ID: "age", Value: 42.0}, "age=42"},
		{"explicit operator", Filter{ID: "age", Operator: ">", Value: 42.0}, "age>42"},
		{"string value", Filter{ID: "sex", Operator: "=", Value: "female"}, "sex=female"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Canonical())
		})
	}
}

func TestGranularityLower(t *testing.T) {
	assert.Equal(t, GranularityBoolean, Lower(GranularityBoolean, GranularityRecord))
	assert.Equal(t, GranularityBoolean, Lower(GranularityRecord, GranularityBoolean))
	assert.Equal(t, GranularityCount, Lower(GranularityCount, GranularityRecord))
	assert.Equal(t, GranularityRecord, Lower(GranularityRecord, GranularityRecord))
}
