package datasets

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

const deliveries = `Order_ID,Distance_km,Preparation_Time_min,Courier_Experience_yrs,Delivery_Time_min
522,7.93,12,1.0,43
738,16.42,20,2.0,84
741,9.52,28,,59
`

func TestLoadCSV(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(deliveries), "deliveries.csv", CSVOptions{
		Target: "Delivery_Time_min",
		Drop:   []string{"Order_ID"},
	})
	require.NoError(t, err)

	r, c := ds.X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []string{"Distance_km", "Preparation_Time_min", "Courier_Experience_yrs"}, ds.FeatureNames)
	assert.Equal(t, "Delivery_Time_min", ds.Target)
	assert.Equal(t, 84.0, ds.Y.AtVec(1))
	assert.True(t, math.IsNaN(ds.X.At(2, 2)))
}

func TestLoadCSVDefaultsToLastColumn(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader("a,b,y\n1,2,3\n4,5,6\n"), "inline", CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, "y", ds.Target)
	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts CSVOptions
		line int
	}{
		{"empty input", "", CSVOptions{}, 1},
		{"missing target", "a,b\n1,2\n", CSVOptions{Target: "y"}, 1},
		{"missing drop column", "a,y\n1,2\n", CSVOptions{Drop: []string{"id"}}, 1},
		{"non numeric feature", "a,y\n1,2\nsunny,3\n", CSVOptions{}, 3},
		{"empty target", "a,y\n1,2\n3,\n", CSVOptions{}, 3},
		{"ragged row", "a,y\n1,2\n3\n", CSVOptions{}, 3},
		{"header only", "a,y\n", CSVOptions{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.in), "inline", tt.opts)
			require.Error(t, err)
			var dl *errors.DataLoadError
			require.True(t, errors.As(err, &dl), "got %v", err)
			assert.Equal(t, tt.line, dl.Line)
			assert.Equal(t, "inline", dl.Source)
		})
	}
}

func TestLoadCSVFileMissing(t *testing.T) {
	_, err := LoadCSVFile("does/not/exist.csv", CSVOptions{})
	var dl *errors.DataLoadError
	assert.True(t, errors.As(err, &dl))
}

func TestReadFeaturesReordersColumns(t *testing.T) {
	X, err := ReadFeatures(strings.NewReader("b,extra,a\n2,x,1\n4,y,3\n"), "inline", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, X.RawMatrix().Data)

	_, err = ReadFeatures(strings.NewReader("b\n1\n"), "inline", []string{"a"})
	assert.Error(t, err)
}

func TestMakeLinearRegressionIsDeterministic(t *testing.T) {
	X1, y1, c1 := MakeLinearRegression(50, 3, 0.5, 7)
	X2, y2, c2 := MakeLinearRegression(50, 3, 0.5, 7)
	assert.True(t, mat.Equal(X1, X2))
	assert.True(t, mat.Equal(y1, y2))
	assert.Equal(t, c1, c2)

	// noise is bounded
	for i := 0; i < 50; i++ {
		clean := 3.0
		for j, c := range c1 {
			clean += c * X1.At(i, j)
		}
		assert.LessOrEqual(t, math.Abs(y1.AtVec(i)-clean), 0.5)
	}
}

func TestTrainTestSplit(t *testing.T) {
	X, y, _ := MakeLinearRegression(10, 2, 0, 1)
	s, err := TrainTestSplit(X, y, 0.25, 42)
	require.NoError(t, err)
	rTest, _ := s.XTest.Dims()
	rTrain, _ := s.XTrain.Dims()
	assert.Equal(t, 3, rTest)
	assert.Equal(t, 7, rTrain)
	assert.Equal(t, 3, s.YTest.Len())

	again, err := TrainTestSplit(X, y, 0.25, 42)
	require.NoError(t, err)
	assert.True(t, mat.Equal(s.XTest, again.XTest))

	_, err = TrainTestSplit(X, y, 1.5, 42)
	assert.Error(t, err)
}
