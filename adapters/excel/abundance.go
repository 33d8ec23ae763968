package excel

import (
	"context"
	"fmt"
	"strconv"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/ports"
)

// AbundanceProvider reads a taxon count table and joins it with sample
// metadata. The table is wide (one row per taxon, one column per sample)
// unless Config.CountColumn is set, in which case it is long form.
type AbundanceProvider struct {
	path     string
	config   Config
	metadata ports.SampleMetadataProvider
}

// NewAbundanceProvider creates an abundance provider
func NewAbundanceProvider(path string, config Config, metadata ports.SampleMetadataProvider) *AbundanceProvider {
	return &AbundanceProvider{path: path, config: config, metadata: metadata}
}

// TaxonAbundance implements ports.TaxonAbundanceProvider
func (p *AbundanceProvider) TaxonAbundance(ctx context.Context) (*sip.AbundanceTable, error) {
	samples, err := p.metadata.SampleMetadata(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.config.reader(p.path).ReadData()
	if err != nil {
		return nil, err
	}

	var records []sip.AbundanceRecord
	if p.config.CountColumn != "" {
		records, err = longRecords(data, p.config)
	} else {
		records, err = wideRecords(data, p.config)
	}
	if err != nil {
		return nil, err
	}
	return &sip.AbundanceTable{Records: records, Samples: samples}, nil
}

func wideRecords(data *ExcelData, config Config) ([]sip.AbundanceRecord, error) {
	taxonColumn := config.TaxonColumn
	if taxonColumn == "" {
		taxonColumn = data.Headers[0]
	}
	taxonIdx := -1
	for i, h := range data.Headers {
		if h == taxonColumn {
			taxonIdx = i
		}
	}
	if taxonIdx < 0 {
		return nil, core.NewMissingColumnError(taxonColumn)
	}

	records := make([]sip.AbundanceRecord, 0, len(data.Cells)*(len(data.Headers)-1))
	for r, row := range data.Cells {
		taxon := row[taxonIdx]
		if taxon == "" {
			return nil, core.NewInvalidInputError(taxonColumn, fmt.Sprintf("row %d has no taxon id", r+2))
		}
		for c, cell := range row {
			if c == taxonIdx || data.Headers[c] == "" {
				continue
			}
			count, err := parseCount(cell)
			if err != nil {
				return nil, core.NewInvalidInputError(data.Headers[c], fmt.Sprintf("row %d: %v", r+2, err))
			}
			records = append(records, sip.AbundanceRecord{
				TaxonID:  core.TaxonID(taxon),
				SampleID: core.SampleID(data.Headers[c]),
				Count:    count,
			})
		}
	}
	return records, nil
}

func longRecords(data *ExcelData, config Config) ([]sip.AbundanceRecord, error) {
	taxonColumn := config.TaxonColumn
	if taxonColumn == "" {
		taxonColumn = "OTU"
	}
	sampleColumn := config.AbundanceSampleColumn
	if sampleColumn == "" {
		sampleColumn = "Sample"
	}
	for _, col := range []string{taxonColumn, sampleColumn, config.CountColumn} {
		if !data.HasColumn(col) {
			return nil, core.NewMissingColumnError(col)
		}
	}

	records := make([]sip.AbundanceRecord, 0, len(data.Rows))
	for i, row := range data.Rows {
		count, err := parseCount(row[config.CountColumn])
		if err != nil {
			return nil, core.NewInvalidInputError(config.CountColumn, fmt.Sprintf("row %d: %v", i+2, err))
		}
		records = append(records, sip.AbundanceRecord{
			TaxonID:  core.TaxonID(row[taxonColumn]),
			SampleID: core.SampleID(row[sampleColumn]),
			Count:    count,
		})
	}
	return records, nil
}

func parseCount(cell string) (float64, error) {
	if isMissing(cell) {
		return nan, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a count", cell)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %g", v)
	}
	return v, nil
}
