// Package query models an incoming genomic beacon request: the declared
// meta, the query parameters, filters and pagination. The model is the
// single parse point for both JSON bodies and URL query strings, and the
// input to the fingerprint and shape classifier.
package query

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "beacon/pkg/errors"
)

// Granularity levels, from least to most revealing.
type Granularity string

const (
	GranularityBoolean Granularity = "boolean"
	GranularityCount   Granularity = "count"
	GranularityRecord  Granularity = "record"
)

var granularityRank = map[Granularity]int{
	GranularityBoolean: 0,
	GranularityCount:   1,
	GranularityRecord:  2,
}

// Valid reports whether g is one of the three known levels.
func (g Granularity) Valid() bool {
	_, ok := granularityRank[g]
	return ok
}

// Lower returns the less revealing of the two granularities. A response is
// never built above the lower of what the client asked for and what the
// deployment allows.
func Lower(a, b Granularity) Granularity {
	if granularityRank[a] <= granularityRank[b] {
		return a
	}
	return b
}

// Resultset inclusion modes.
const (
	IncludeResultsetsAll  = "ALL"
	IncludeResultsetsHit  = "HIT"
	IncludeResultsetsMiss = "MISS"
	IncludeResultsetsNone = "NONE"
)

// Filter is a single filtering term. Value is left untyped: ontology
// filters carry no value, alphanumeric filters carry strings or numbers.
type Filter struct {
	ID       string `json:"id"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// Canonical renders the filter in its canonical comparable form: a bare
// ontology term as "id", an equality as "id=value", anything else as
// "id<operator>value".
func (f Filter) Canonical() string {
	if f.Value == nil {
		return f.ID
	}
	op := f.Operator
	if op == "" {
		op = "="
	}
	return fmt.Sprintf("%s%s%v", f.ID, op, f.Value)
}

type Pagination struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

type Meta struct {
	APIVersion       string   `json:"apiVersion"`
	RequestedSchemas []string `json:"requestedSchemas,omitempty"`
}

type Query struct {
	Filters                   []Filter       `json:"filters,omitempty"`
	RequestParameters         map[string]any `json:"requestParameters,omitempty"`
	IncludeResultsetResponses string         `json:"includeResultsetResponses"`
	Pagination                Pagination     `json:"pagination"`
	RequestedGranularity      Granularity    `json:"requestedGranularity"`
	TestMode                  bool           `json:"testMode"`
}

// RequestParams is the parsed request in either transport shape.
type RequestParams struct {
	Meta  Meta  `json:"meta"`
	Query Query `json:"query"`
}

// Defaults seeds the fields a client may omit.
func Defaults(apiVersion string, granularity Granularity) RequestParams {
	return RequestParams{
		Meta: Meta{APIVersion: apiVersion},
		Query: Query{
			RequestParameters:         map[string]any{},
			IncludeResultsetResponses: IncludeResultsetsHit,
			Pagination:                Pagination{Skip: 0, Limit: 10},
			RequestedGranularity:      granularity,
		},
	}
}

// Parse builds RequestParams from an HTTP request. A JSON body wins when
// present; otherwise every URL query parameter is folded in. Either way the
// result is normalized so that equivalent requests parse identically.
func Parse(r *http.Request, defaults RequestParams) (RequestParams, error) {
	p := defaults
	if p.Query.RequestParameters == nil {
		p.Query.RequestParameters = map[string]any{}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return RequestParams{}, pkgerrors.Wrap(err, pkgerrors.CodeBadRequest, "read request body")
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &p); err != nil {
			return RequestParams{}, pkgerrors.Wrap(err, pkgerrors.CodeBadRequest, "decode request body")
		}
	} else if err := p.fromURLQuery(r); err != nil {
		return RequestParams{}, err
	}

	if err := p.normalize(); err != nil {
		return RequestParams{}, err
	}
	return p, nil
}

func (p *RequestParams) fromURLQuery(r *http.Request) error {
	for key, values := range r.URL.Query() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		v := values[0]
		switch key {
		case "skip":
			n, err := strconv.Atoi(v)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeBadRequest, "skip must be an integer")
			}
			p.Query.Pagination.Skip = n
		case "limit":
			n, err := strconv.Atoi(v)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeBadRequest, "limit must be an integer")
			}
			p.Query.Pagination.Limit = n
		case "includeResultsetResponses":
			p.Query.IncludeResultsetResponses = strings.ToUpper(v)
		case "requestedGranularity":
			p.Query.RequestedGranularity = Granularity(v)
		case "testMode":
			p.Query.TestMode = v == "true"
		case "requestedSchema":
			p.Meta.RequestedSchemas = append(p.Meta.RequestedSchemas, v)
		case "filters":
			for _, id := range strings.Split(v, ",") {
				if id = strings.TrimSpace(id); id != "" {
					p.Query.Filters = append(p.Query.Filters, Filter{ID: id})
				}
			}
		default:
			p.Query.RequestParameters[key] = v
		}
	}
	return nil
}

// normalize validates enumerations and coerces start/end coordinates to
// []int regardless of transport shape, so the fingerprint and classifier
// see one representation.
func (p *RequestParams) normalize() error {
	if !p.Query.RequestedGranularity.Valid() {
		return pkgerrors.New(pkgerrors.CodeBadRequest,
			fmt.Sprintf("unknown granularity %q", p.Query.RequestedGranularity))
	}
	switch p.Query.IncludeResultsetResponses {
	case IncludeResultsetsAll, IncludeResultsetsHit, IncludeResultsetsMiss, IncludeResultsetsNone:
	default:
		return pkgerrors.New(pkgerrors.CodeBadRequest,
			fmt.Sprintf("unknown includeResultsetResponses %q", p.Query.IncludeResultsetResponses))
	}
	if p.Query.Pagination.Skip < 0 || p.Query.Pagination.Limit < 0 {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "pagination values must be non-negative")
	}

	for _, key := range []string{"start", "end"} {
		raw, ok := p.Query.RequestParameters[key]
		if !ok {
			continue
		}
		coords, err := coerceCoordinates(raw)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeBadRequest, "parse "+key)
		}
		p.Query.RequestParameters[key] = coords
	}
	return nil
}

func coerceCoordinates(raw any) ([]int, error) {
	switch v := raw.(type) {
	case []int:
		return v, nil
	case float64:
		return []int{int(v)}, nil
	case string:
		var out []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("coordinate %q is not an integer", part)
			}
			out = append(out, n)
		}
		return out, nil
	case []any:
		out := make([]int, 0, len(v))
		for _, elem := range v {
			f, ok := elem.(float64)
			if !ok {
				s, ok := elem.(string)
				if !ok {
					return nil, fmt.Errorf("coordinate %v is not an integer", elem)
				}
				n, err := strconv.Atoi(strings.TrimSpace(s))
				if err != nil {
					return nil, fmt.Errorf("coordinate %q is not an integer", s)
				}
				out = append(out, n)
				continue
			}
			out = append(out, int(f))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported coordinate type %T", raw)
	}
}
