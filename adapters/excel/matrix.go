package excel

import (
	"context"
	"fmt"
	"strconv"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// DistanceFile reads a precomputed square distance matrix. The header row
// holds sample ids after one leading cell; every data row starts with the
// sample id it belongs to.
type DistanceFile struct {
	path   string
	config Config
}

// NewDistanceFile creates a file-backed distance source
func NewDistanceFile(path string, config Config) *DistanceFile {
	return &DistanceFile{path: path, config: config}
}

// Matrix reads and validates the matrix
func (d *DistanceFile) Matrix(ctx context.Context) (*sip.DistanceMatrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := d.config.reader(d.path).ReadData()
	if err != nil {
		return nil, err
	}
	return matrixFromData(data)
}

func matrixFromData(data *ExcelData) (*sip.DistanceMatrix, error) {
	ids := make([]core.SampleID, 0, len(data.Headers)-1)
	for _, h := range data.Headers[1:] {
		ids = append(ids, core.SampleID(h))
	}
	n := len(ids)
	if len(data.Cells) != n {
		return nil, core.NewInvalidInputError("distance matrix",
			fmt.Sprintf("%d columns but %d rows", n, len(data.Cells)))
	}

	rowOf := make(map[string][]string, n)
	for _, row := range data.Cells {
		if _, dup := rowOf[row[0]]; dup {
			return nil, core.NewInvalidInputError("distance matrix", fmt.Sprintf("duplicate row for sample %s", row[0]))
		}
		rowOf[row[0]] = row[1:]
	}

	values := make([][]float64, n)
	for i, id := range ids {
		row, ok := rowOf[id.String()]
		if !ok {
			return nil, core.NewInvalidInputError("distance matrix", fmt.Sprintf("no row for sample %s", id))
		}
		values[i] = make([]float64, n)
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, core.NewInvalidInputError("distance matrix",
					fmt.Sprintf("%s/%s: %q is not a number", id, ids[j], cell))
			}
			values[i][j] = v
		}
	}
	return sip.NewDistanceMatrix(ids, values)
}
