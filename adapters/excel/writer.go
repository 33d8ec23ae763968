package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// NA marks a missing value in written tables
const NA = "NA"

// ShiftHeaders are the columns of a written BD_shift table
var ShiftHeaders = []string{
	"treatment_sample_id", "BD_min", "wmean_dist", "n_overlap_fractions", "null_ci_low", "null_ci_high",
}

// AtomExcessHeaders are the columns of a written atom excess table
var AtomExcessHeaders = []string{
	"taxon", "Wlight", "Wlab", "Z", "Gi", "Mlight", "Mheavymax", "Mlab", "A", "A_CI_low", "A_CI_high",
}

// WindowHeaders are the columns of a written W-table
var WindowHeaders = []string{"taxon", "is_control", "replicate", "W"}

// WriteWindows writes the per-replicate weighted mean densities
func WriteWindows(path string, windows []sip.TaxonWindowRecord) error {
	rows := make([][]interface{}, len(windows))
	for i, w := range windows {
		rows[i] = []interface{}{w.TaxonID.String(), strconv.FormatBool(w.IsControl), w.Replicate, w.W}
	}
	return writeTable(path, "W", WindowHeaders, rows)
}

// WriteShifts writes a BD_shift table; the format follows the file extension
func WriteShifts(path string, shifts []sip.WeightedShiftRecord) error {
	rows := make([][]interface{}, len(shifts))
	for i, s := range shifts {
		rows[i] = []interface{}{
			s.TreatmentSampleID.String(),
			s.BDMin,
			s.WeightedMeanDistance,
			s.NOverlappingFractions,
			cell(s.NullCILow),
			cell(s.NullCIHigh),
		}
	}
	return writeTable(path, "bd_shift", ShiftHeaders, rows)
}

// WriteAtomExcess writes an atom excess table with its intervals
func WriteAtomExcess(path string, atoms []sip.AtomExcessInterval) error {
	rows := make([][]interface{}, len(atoms))
	for i, a := range atoms {
		rows[i] = []interface{}{
			a.TaxonID.String(),
			cell(a.Wlight), cell(a.Wlab), cell(a.Z), cell(a.Gi), cell(a.Mlight),
			cell(a.Mheavymax), cell(a.Mlab), cell(a.A), cell(a.ACILow), cell(a.ACIHigh),
		}
	}
	return writeTable(path, "atom_excess", AtomExcessHeaders, rows)
}

// WriteDistanceMatrix writes a square matrix in the layout DistanceFile reads
func WriteDistanceMatrix(path string, m *sip.DistanceMatrix) error {
	headers := make([]string, 0, m.Len()+1)
	headers = append(headers, "")
	for _, id := range m.SampleIDs {
		headers = append(headers, id.String())
	}
	rows := make([][]interface{}, m.Len())
	for i, id := range m.SampleIDs {
		row := make([]interface{}, 0, m.Len()+1)
		row = append(row, id.String())
		for j := 0; j < m.Len(); j++ {
			row = append(row, m.At(i, j))
		}
		rows[i] = row
	}
	return writeTable(path, "distance", headers, rows)
}

// WriteMetadata writes a sample table: the sample id, numeric columns and
// label columns, each group in name order, followed by an is_control column
func WriteMetadata(path string, table *sip.SampleTable) error {
	numeric := sortedKeys(table.Numeric)
	labels := sortedKeys(table.Labels)

	headers := append([]string{"Sample"}, numeric...)
	headers = append(headers, labels...)
	headers = append(headers, "is_control")

	rows := make([][]interface{}, table.Len())
	for i, id := range table.SampleIDs {
		row := make([]interface{}, 0, len(headers))
		row = append(row, id.String())
		for _, name := range numeric {
			v := table.Numeric[name][i]
			if math.IsNaN(v) {
				row = append(row, NA)
			} else {
				row = append(row, v)
			}
		}
		for _, name := range labels {
			row = append(row, table.Labels[name][i])
		}
		row = append(row, strconv.FormatBool(table.IsControl[i]))
		rows[i] = row
	}
	return writeTable(path, "samples", headers, rows)
}

// WriteAbundance writes a wide taxon x sample count table in the layout
// AbundanceProvider reads. Cells without a record are written as 0.
func WriteAbundance(path string, table *sip.AbundanceTable) error {
	var samples []core.SampleID
	sampleIdx := make(map[core.SampleID]int)
	var taxa []core.TaxonID
	taxonIdx := make(map[core.TaxonID]int)
	for _, r := range table.Records {
		if _, ok := sampleIdx[r.SampleID]; !ok {
			sampleIdx[r.SampleID] = len(samples)
			samples = append(samples, r.SampleID)
		}
		if _, ok := taxonIdx[r.TaxonID]; !ok {
			taxonIdx[r.TaxonID] = len(taxa)
			taxa = append(taxa, r.TaxonID)
		}
	}

	rows := make([][]interface{}, len(taxa))
	for i, taxon := range taxa {
		rows[i] = make([]interface{}, len(samples)+1)
		rows[i][0] = taxon.String()
		for j := range samples {
			rows[i][j+1] = 0.0
		}
	}
	for _, r := range table.Records {
		var v interface{} = r.Count
		if math.IsNaN(r.Count) {
			v = NA
		}
		rows[taxonIdx[r.TaxonID]][sampleIdx[r.SampleID]+1] = v
	}

	headers := make([]string, 0, len(samples)+1)
	headers = append(headers, "OTU")
	for _, s := range samples {
		headers = append(headers, s.String())
	}
	return writeTable(path, "abundance", headers, rows)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(v *float64) interface{} {
	if v == nil {
		return NA
	}
	return *v
}

func writeTable(path, sheet string, headers []string, rows [][]interface{}) error {
	var err error
	switch fileTypeOf(path) {
	case "xlsx":
		err = writeExcel(path, sheet, headers, rows)
	default:
		err = writeDelimited(path, headers, rows)
	}
	if err != nil {
		return err
	}
	log.Printf("[DataWriter] wrote %d rows to %s", len(rows), path)
	return nil
}

func writeExcel(path, sheet string, headers []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, columnIndexToLetter(0)+"1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		ref := fmt.Sprintf("%s%d", columnIndexToLetter(0), i+2)
		if err := f.SetSheetRow(sheet, ref, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func writeDelimited(path string, headers []string, rows [][]interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if fileTypeOf(path) == "tsv" {
		w.Comma = '\t'
	}
	if err := w.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record[:len(row)]); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
