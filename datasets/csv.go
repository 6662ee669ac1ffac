// Package datasets loads tabular regression data and generates synthetic
// problems for tests and examples.
package datasets

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

// Dataset is a numeric feature matrix with its target column.
type Dataset struct {
	X            *mat.Dense
	Y            *mat.VecDense
	FeatureNames []string
	Target       string
}

// CSVOptions controls LoadCSV.
type CSVOptions struct {
	// Target names the label column. Empty means the last column.
	Target string
	// Drop lists columns to ignore, such as identifiers.
	Drop []string
	// Comma is the field separator. Zero means ','.
	Comma rune
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataLoadError(path, 0, err)
	}
	defer f.Close()
	return LoadCSV(f, path, opts)
}

// LoadCSV reads a CSV with a header row. Every kept cell must parse as a
// float; an empty feature cell becomes NaN so an imputer can fill it, while
// an empty target cell is an error. Errors are DataLoadErrors carrying the
// 1-based line.
func LoadCSV(r io.Reader, source string, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			err = errors.Wrap(errors.ErrEmptyData, "no header")
		}
		return nil, errors.NewDataLoadError(source, 1, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	targetIdx := len(header) - 1
	if opts.Target != "" {
		targetIdx = indexOf(header, opts.Target)
		if targetIdx < 0 {
			return nil, errors.NewDataLoadError(source, 1, errors.Newf("target column %q not found", opts.Target))
		}
	}
	dropped := make(map[int]bool, len(opts.Drop))
	for _, name := range opts.Drop {
		idx := indexOf(header, name)
		if idx < 0 {
			return nil, errors.NewDataLoadError(source, 1, errors.Newf("drop column %q not found", name))
		}
		dropped[idx] = true
	}

	var featureIdx []int
	var names []string
	for i, h := range header {
		if i == targetIdx || dropped[i] {
			continue
		}
		featureIdx = append(featureIdx, i)
		names = append(names, h)
	}
	if len(featureIdx) == 0 {
		return nil, errors.NewDataLoadError(source, 1, errors.New("no feature columns"))
	}

	var data, target []float64
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.NewDataLoadError(source, line, err)
		}
		yv, err := parseCell(record[targetIdx])
		if err != nil || math.IsNaN(yv) {
			if err == nil {
				err = errors.Newf("empty target %q", header[targetIdx])
			}
			return nil, errors.NewDataLoadError(source, line, err)
		}
		target = append(target, yv)
		for _, j := range featureIdx {
			v, err := parseCell(record[j])
			if err != nil {
				return nil, errors.NewDataLoadError(source, line, errors.Wrapf(err, "column %q", header[j]))
			}
			data = append(data, v)
		}
	}
	if len(target) == 0 {
		return nil, errors.NewDataLoadError(source, 0, errors.Wrap(errors.ErrEmptyData, "no data rows"))
	}

	log.GetLoggerWithName("datasets").Info("csv loaded",
		"source", source,
		log.SamplesKey, len(target),
		log.FeaturesKey, len(featureIdx),
	)
	return &Dataset{
		X:            mat.NewDense(len(target), len(featureIdx), data),
		Y:            mat.NewVecDense(len(target), target),
		FeatureNames: names,
		Target:       header[targetIdx],
	}, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "na") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadFeatures reads a CSV of feature columns only, in the given order, as
// used by prediction. Extra columns are ignored.
func ReadFeatures(r io.Reader, source string, names []string) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewDataLoadError(source, 1, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	cols := make([]int, len(names))
	for k, name := range names {
		cols[k] = indexOf(header, name)
		if cols[k] < 0 {
			return nil, errors.NewDataLoadError(source, 1, errors.Newf("feature column %q not found", name))
		}
	}

	var data []float64
	rows, line := 0, 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.NewDataLoadError(source, line, err)
		}
		for _, j := range cols {
			v, err := parseCell(record[j])
			if err != nil {
				return nil, errors.NewDataLoadError(source, line, errors.Wrapf(err, "column %q", header[j]))
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, errors.NewDataLoadError(source, 0, errors.Wrap(errors.ErrEmptyData, "no data rows"))
	}
	return mat.NewDense(rows, len(names), data), nil
}
