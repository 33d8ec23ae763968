package excel

import (
	"context"
	"fmt"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// MetadataProvider reads per-sample metadata from a workbook or CSV file
type MetadataProvider struct {
	path   string
	config Config
}

// NewMetadataProvider creates a metadata provider for the given file
func NewMetadataProvider(path string, config Config) *MetadataProvider {
	return &MetadataProvider{path: path, config: config}
}

// SampleMetadata implements ports.SampleMetadataProvider. Columns whose
// non-missing cells all parse as numbers become numeric columns; the rest
// become label columns.
func (p *MetadataProvider) SampleMetadata(ctx context.Context) (*sip.SampleTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.config.reader(p.path).ReadData()
	if err != nil {
		return nil, err
	}
	return metadataFromData(data, p.config)
}

func metadataFromData(data *ExcelData, config Config) (*sip.SampleTable, error) {
	sampleColumn := config.SampleColumn
	if sampleColumn == "" {
		sampleColumn = data.Headers[0]
	}
	if !data.HasColumn(sampleColumn) {
		return nil, core.NewMissingColumnError(sampleColumn)
	}

	raw := data.Column(sampleColumn)
	ids := make([]core.SampleID, len(raw))
	for i, v := range raw {
		if v == "" {
			return nil, core.NewInvalidInputError(sampleColumn, fmt.Sprintf("row %d has no sample id", i+2))
		}
		ids[i] = core.SampleID(v)
	}

	flags, err := config.Control.Select(data)
	if err != nil {
		return nil, err
	}

	table, err := sip.NewSampleTable(ids, flags)
	if err != nil {
		return nil, err
	}

	for _, header := range data.Headers {
		if header == sampleColumn || header == "" {
			continue
		}
		values := data.Column(header)
		if numeric, ok := parseNumeric(values); ok {
			if err := table.AddNumeric(header, numeric); err != nil {
				return nil, err
			}
			continue
		}
		if err := table.AddLabel(header, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}
