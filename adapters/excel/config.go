package excel

// Config names the columns the file providers read. Empty names fall back
// to the defaults below.
type Config struct {
	SampleColumn string          `json:"sample_column"` // default: first column
	TaxonColumn  string          `json:"taxon_column"`  // default: first column of the abundance table
	CountColumn  string          `json:"count_column"`  // set to read a long (taxon, sample, count) table

	// AbundanceSampleColumn names the sample id column of a long abundance
	// table (default: Sample). It is independent of SampleColumn, which
	// names the id column of the metadata file.
	AbundanceSampleColumn string `json:"abundance_sample_column"`
	Sheet        string          `json:"sheet"`         // default: first worksheet
	Control      ControlSelector `json:"control"`
}

// DefaultConfig returns the column layout produced by common phyloseq exports
func DefaultConfig() Config {
	return Config{
		Control: ControlSelector{Column: "Treatment", Value: "12C-Con"},
	}
}

func (c Config) reader(path string) *DataReader {
	r := NewDataReader(path)
	if c.Sheet != "" {
		r.WithSheet(c.Sheet)
	}
	return r
}
