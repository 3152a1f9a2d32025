package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonathanWenger/streambasedal/dataset"
	"go.viam.com/test"
)

func writeTestFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	labelPath := filepath.Join(dir, "labels.csv")
	data := "0.1,0.2\n0.3,0.4\n0.5,0.6\n"
	labels := "0\n1\n0\n"
	test.That(t, os.WriteFile(dataPath, []byte(data), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(labelPath, []byte(labels), 0o644), test.ShouldBeNil)
	return dataPath, labelPath
}

func TestLoad(t *testing.T) {
	dataPath, labelPath := writeTestFiles(t)
	ds, err := Load(dataPath, labelPath, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ds.NumSamples(), test.ShouldEqual, 3)
	test.That(t, ds.NumClasses(), test.ShouldEqual, 2)
	test.That(t, ds.FeatureDim(), test.ShouldEqual, 2)
	test.That(t, ds.Samples()[1], test.ShouldResemble, dataset.Sample{X: []float64{0.3, 0.4}, Y: 1})
}

func TestOpenStreamsLazily(t *testing.T) {
	ctx := context.Background()
	dataPath, labelPath := writeTestFiles(t)
	stream, err := Open(dataPath, labelPath)
	test.That(t, err, test.ShouldBeNil)
	defer stream.Close()
	test.That(t, stream.NumSamples(), test.ShouldEqual, 3)
	test.That(t, stream.NumClasses(), test.ShouldEqual, 2)
	test.That(t, stream.FeatureDim(), test.ShouldEqual, 2)

	var got []dataset.Sample
	for {
		s, err := stream.Next(ctx)
		if err == dataset.ErrStreamExhausted {
			break
		}
		test.That(t, err, test.ShouldBeNil)
		got = append(got, s)
	}
	test.That(t, got, test.ShouldHaveLength, 3)
	test.That(t, got[2], test.ShouldResemble, dataset.Sample{X: []float64{0.5, 0.6}, Y: 0})

	test.That(t, stream.ResetPosition(ctx), test.ShouldBeNil)
	s, err := stream.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldResemble, dataset.Sample{X: []float64{0.1, 0.2}, Y: 0})
}

func TestLoadRejectsMismatchedFiles(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	labelPath := filepath.Join(dir, "labels.csv")
	test.That(t, os.WriteFile(dataPath, []byte("0.1\n0.2\n"), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(labelPath, []byte("0\n"), 0o644), test.ShouldBeNil)
	_, err := Load(dataPath, labelPath, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	labelPath := filepath.Join(dir, "labels.csv")
	test.That(t, os.WriteFile(dataPath, []byte("oops\n"), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(labelPath, []byte("0\n"), 0o644), test.ShouldBeNil)
	_, err := Load(dataPath, labelPath, nil)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, os.WriteFile(dataPath, []byte("0.5\n"), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(labelPath, []byte("-3\n"), 0o644), test.ShouldBeNil)
	_, err = Load(dataPath, labelPath, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.csv", "neither.csv", nil)
	test.That(t, err, test.ShouldNotBeNil)
}
