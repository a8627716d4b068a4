package variants

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/query"
	"beacon/internal/rip"
)

func seedSource() *InMemorySource {
	src := NewInMemory()
	src.Add(
		Entry{
			DatasetID:              "ds-1",
			GenomicAlleleShortForm: "NC_000017.11:g.43057063G>A",
			ReferenceName:          "17",
			Start:                  43057063,
			ReferenceBases:         "G",
			AlternateBases:         "A",
			Record:                 rip.CandidateRecord{VariantInternalID: "17-43057063-G-A", AlleleFrequency: 0.01},
		},
		Entry{
			DatasetID:       "ds-1",
			AminoAcidChange: "p.Val600Glu",
			Record:          rip.CandidateRecord{VariantInternalID: "7-140753336-A-T", AlleleFrequency: 0.002},
		},
		Entry{
			DatasetID:              "ds-2",
			GenomicAlleleShortForm: "NC_000017.11:g.43057063G>A",
			Record:                 rip.CandidateRecord{VariantInternalID: "17-43057063-G-A", AlleleFrequency: 0.015},
		},
	)
	return src
}

func alleleQuery(shortForm string) query.RequestParams {
	p := query.Defaults("v2.0", query.GranularityRecord)
	p.Query.RequestParameters["genomicAlleleShortForm"] = shortForm
	return p
}

func TestFind_ByAlleleShortForm(t *testing.T) {
	src := seedSource()

	records, total, err := src.Find(context.Background(), "ds-1", alleleQuery("NC_000017.11:g.43057063G>A"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "17-43057063-G-A", records[0].VariantInternalID)
}

func TestFind_BySequence(t *testing.T) {
	src := seedSource()
	p := query.Defaults("v2.0", query.GranularityRecord)
	p.Query.RequestParameters = map[string]any{
		"start":          []int{43057063},
		"referenceName":  "17",
		"referenceBases": "G",
		"alternateBases": "A",
	}

	records, total, err := src.Find(context.Background(), "ds-1", p)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
}

func TestFind_ByAminoAcidChange(t *testing.T) {
	src := seedSource()
	p := query.Defaults("v2.0", query.GranularityRecord)
	p.Query.RequestParameters["aminoacidChange"] = "p.Val600Glu"

	records, total, err := src.Find(context.Background(), "ds-1", p)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "7-140753336-A-T", records[0].VariantInternalID)
}

func TestFind_DatasetScoped(t *testing.T) {
	src := seedSource()

	records, total, err := src.Find(context.Background(), "ds-2", alleleQuery("NC_000017.11:g.43057063G>A"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.InDelta(t, 0.015, records[0].AlleleFrequency, 1e-12)

	_, total, err = src.Find(context.Background(), "ds-absent", alleleQuery("NC_000017.11:g.43057063G>A"))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestFind_UntargetedQueryMatchesNothing(t *testing.T) {
	src := seedSource()
	p := query.Defaults("v2.0", query.GranularityRecord)
	p.Query.RequestParameters["geneId"] = "BRCA1"

	records, total, err := src.Find(context.Background(), "ds-1", p)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)
}

func TestFind_Pagination(t *testing.T) {
	src := NewInMemory()
	for i := 0; i < 25; i++ {
		src.Add(Entry{
			DatasetID:              "ds-1",
			GenomicAlleleShortForm: "NC_000001.11:g.100A>T",
			Record: rip.CandidateRecord{
				VariantInternalID: fmt.Sprintf("var-%02d", i),
				AlleleFrequency:   0.01,
			},
		})
	}

	p := alleleQuery("NC_000001.11:g.100A>T")
	p.Query.Pagination = query.Pagination{Skip: 20, Limit: 10}

	records, total, err := src.Find(context.Background(), "ds-1", p)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, records, 5)
	assert.Equal(t, "var-20", records[0].VariantInternalID)
}

func TestDatasets_SortedIDs(t *testing.T) {
	src := seedSource()
	ids, err := src.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ds-1", "ds-2"}, ids)
}
