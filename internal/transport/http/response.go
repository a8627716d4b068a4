package httptransport

import (
	"beacon/internal/query"
	"beacon/internal/rip"
)

// Wire shapes for the variant endpoint response: meta echoing the request,
// a summary, and per-dataset resultsets.

type receivedRequestSummary struct {
	APIVersion                string            `json:"apiVersion"`
	RequestedSchemas          []string          `json:"requestedSchemas"`
	Filters                   []string          `json:"filters"`
	RequestParameters         map[string]any    `json:"requestParameters"`
	IncludeResultsetResponses string            `json:"includeResultsetResponses"`
	Pagination                query.Pagination  `json:"pagination"`
	RequestedGranularity      query.Granularity `json:"requestedGranularity"`
	TestMode                  bool              `json:"testMode"`
}

type responseMeta struct {
	BeaconID               string                 `json:"beaconId"`
	APIVersion             string                 `json:"apiVersion"`
	ReturnedGranularity    query.Granularity      `json:"returnedGranularity"`
	ReceivedRequestSummary receivedRequestSummary `json:"receivedRequestSummary"`
}

type responseSummary struct {
	Exists bool `json:"exists"`
	// Omitted at boolean granularity: a count is already a disclosure.
	NumTotalResults *int `json:"numTotalResults,omitempty"`
}

type resultSet struct {
	ID           string                `json:"id"`
	SetType      string                `json:"setType"`
	Exists       bool                  `json:"exists"`
	ResultsCount *int                  `json:"resultsCount,omitempty"`
	Results      []rip.CandidateRecord `json:"results,omitempty"`
}

type resultSets struct {
	ResultSets []resultSet `json:"resultSets"`
}

type beaconResponse struct {
	Meta            responseMeta    `json:"meta"`
	ResponseSummary responseSummary `json:"responseSummary"`
	Response        *resultSets     `json:"response,omitempty"`
}

// datasetResult is the internal per-dataset outcome before it is shaped to
// the requested granularity and inclusion mode.
type datasetResult struct {
	DatasetID string
	Records   []rip.CandidateRecord
	Count     int
}

func buildResponse(beaconID string, params query.RequestParams, granularity query.Granularity, results []datasetResult) beaconResponse {
	filters := make([]string, 0, len(params.Query.Filters))
	for _, f := range params.Query.Filters {
		filters = append(filters, f.Canonical())
	}

	total := 0
	for _, dr := range results {
		total += dr.Count
	}

	resp := beaconResponse{
		Meta: responseMeta{
			BeaconID:            beaconID,
			APIVersion:          params.Meta.APIVersion,
			ReturnedGranularity: granularity,
			ReceivedRequestSummary: receivedRequestSummary{
				APIVersion:                params.Meta.APIVersion,
				RequestedSchemas:          params.Meta.RequestedSchemas,
				Filters:                   filters,
				RequestParameters:         params.Query.RequestParameters,
				IncludeResultsetResponses: params.Query.IncludeResultsetResponses,
				Pagination:                params.Query.Pagination,
				RequestedGranularity:      params.Query.RequestedGranularity,
				TestMode:                  params.Query.TestMode,
			},
		},
		ResponseSummary: responseSummary{Exists: total > 0},
	}
	if granularity != query.GranularityBoolean {
		resp.ResponseSummary.NumTotalResults = &total
	}
	if granularity == query.GranularityBoolean {
		return resp
	}

	sets := make([]resultSet, 0, len(results))
	for _, dr := range results {
		if !included(params.Query.IncludeResultsetResponses, dr.Count > 0) {
			continue
		}
		set := resultSet{
			ID:      dr.DatasetID,
			SetType: "dataset",
			Exists:  dr.Count > 0,
		}
		count := dr.Count
		set.ResultsCount = &count
		if granularity == query.GranularityRecord {
			set.Results = dr.Records
		}
		sets = append(sets, set)
	}
	resp.Response = &resultSets{ResultSets: sets}
	return resp
}

func included(mode string, exists bool) bool {
	switch mode {
	case query.IncludeResultsetsHit:
		return exists
	case query.IncludeResultsetsMiss:
		return !exists
	case query.IncludeResultsetsNone:
		return false
	default: // ALL
		return true
	}
}
