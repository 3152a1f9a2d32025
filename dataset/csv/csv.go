/*
Package csv loads sample streams from CSV files. A dataset is a pair
of files: a data file whose rows are the feature vectors, one float
per column, and a label file with one integer class label per row.
*/
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/JonathanWenger/streambasedal/dataset"
)

/*
Load reads the data and label files eagerly and returns an in-memory
dataset.Dataset delivering the samples in the order given by opts.
It returns an error if the files cannot be opened or parsed, or if
their row counts differ.
*/
func Load(dataPath, labelPath string, opts *dataset.Options) (*dataset.Dataset, error) {
	samples, err := readSamples(dataPath, labelPath)
	if err != nil {
		return nil, err
	}
	return dataset.New(samples, opts), nil
}

/*
Stream is a dataset.Stream that reads samples lazily from the data
and label files, one row at a time. ResetPosition reopens both files.
Open parses both files in full once to count samples and classes,
holding every sample in memory while it does so; the lazy reading
applies to Next only. It does not support shuffling or sorting.
*/
type Stream struct {
	dataPath   string
	labelPath  string
	numSamples int
	numClasses int
	featureDim int
	dataFile   *os.File
	labelFile  *os.File
	dataR      *csv.Reader
	labelR     *csv.Reader
}

/*
Open scans the data and label files to determine the sample count,
class count and feature dimension, and returns a Stream positioned at
the first sample.
*/
func Open(dataPath, labelPath string) (*Stream, error) {
	s := &Stream{dataPath: dataPath, labelPath: labelPath}
	var err error
	s.numSamples, s.numClasses, s.featureDim, err = scan(dataPath, labelPath)
	if err != nil {
		return nil, err
	}
	if err := s.ResetPosition(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Next returns the next sample or dataset.ErrStreamExhausted.
func (s *Stream) Next(ctx context.Context) (dataset.Sample, error) {
	if err := ctx.Err(); err != nil {
		return dataset.Sample{}, err
	}
	dataRow, err := s.dataR.Read()
	if err == io.EOF {
		return dataset.Sample{}, dataset.ErrStreamExhausted
	}
	if err != nil {
		return dataset.Sample{}, fmt.Errorf("reading data row: %v", err)
	}
	labelRow, err := s.labelR.Read()
	if err == io.EOF {
		return dataset.Sample{}, fmt.Errorf("label file %s is shorter than data file %s", s.labelPath, s.dataPath)
	}
	if err != nil {
		return dataset.Sample{}, fmt.Errorf("reading label row: %v", err)
	}
	return parseSample(dataRow, labelRow)
}

// NumSamples returns the number of rows in the data file.
func (s *Stream) NumSamples() int {
	return s.numSamples
}

// NumClasses returns the largest label seen while opening, plus one.
func (s *Stream) NumClasses() int {
	return s.numClasses
}

// FeatureDim returns the number of columns of the data file.
func (s *Stream) FeatureDim() int {
	return s.featureDim
}

// ResetPosition reopens both files at their first row.
func (s *Stream) ResetPosition(ctx context.Context) error {
	s.Close()
	var err error
	s.dataFile, err = os.Open(s.dataPath)
	if err != nil {
		return fmt.Errorf("opening data file: %v", err)
	}
	s.labelFile, err = os.Open(s.labelPath)
	if err != nil {
		s.Close()
		return fmt.Errorf("opening label file: %v", err)
	}
	s.dataR = newReader(s.dataFile)
	s.labelR = newReader(s.labelFile)
	return nil
}

// Close releases the underlying file handles.
func (s *Stream) Close() error {
	if s.dataFile != nil {
		s.dataFile.Close()
		s.dataFile = nil
	}
	if s.labelFile != nil {
		s.labelFile.Close()
		s.labelFile = nil
	}
	return nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

func parseSample(dataRow, labelRow []string) (dataset.Sample, error) {
	x := make([]float64, len(dataRow))
	for i, v := range dataRow {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return dataset.Sample{}, fmt.Errorf("converting %q to float64: %v", v, err)
		}
		x[i] = f
	}
	if len(labelRow) < 1 {
		return dataset.Sample{}, fmt.Errorf("label row is empty")
	}
	y, err := strconv.Atoi(labelRow[0])
	if err != nil {
		return dataset.Sample{}, fmt.Errorf("converting label %q to int: %v", labelRow[0], err)
	}
	if y < 0 {
		return dataset.Sample{}, fmt.Errorf("negative class label %d", y)
	}
	return dataset.Sample{X: x, Y: y}, nil
}

func readSamples(dataPath, labelPath string) ([]dataset.Sample, error) {
	df, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %v", err)
	}
	defer df.Close()
	lf, err := os.Open(labelPath)
	if err != nil {
		return nil, fmt.Errorf("opening label file: %v", err)
	}
	defer lf.Close()
	dataR := newReader(df)
	labelR := newReader(lf)
	var samples []dataset.Sample
	for l := 1; ; l++ {
		dataRow, err := dataR.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %v", dataPath, l, err)
		}
		labelRow, err := labelR.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("label file %s is shorter than data file %s", labelPath, dataPath)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %v", labelPath, l, err)
		}
		s, err := parseSample(dataRow, labelRow)
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %v", l, err)
		}
		if len(samples) > 0 && len(s.X) != len(samples[0].X) {
			return nil, fmt.Errorf("line %d has %d features, expected %d", l, len(s.X), len(samples[0].X))
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func scan(dataPath, labelPath string) (numSamples, numClasses, featureDim int, err error) {
	samples, err := readSamples(dataPath, labelPath)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, s := range samples {
		if s.Y+1 > numClasses {
			numClasses = s.Y + 1
		}
	}
	if len(samples) > 0 {
		featureDim = len(samples[0].X)
	}
	return len(samples), numClasses, featureDim, nil
}
