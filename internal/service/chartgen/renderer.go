package chartgen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/tracelight/defectdesk/internal/model/result"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no chart data")

// Kind selects the artifact shape.
type Kind int

const (
	Bar Kind = iota
	Pie
)

// Renderer turns prepared data points into an image artifact and returns the
// artifact's filename inside the output directory.
type Renderer interface {
	Render(points []result.Point, kind Kind) (string, error)
}

const (
	chartWidth  = 600
	chartHeight = 400
)

// FileRenderer writes PNG charts into a fixed output directory.
type FileRenderer struct {
	dir string
}

// NewFileRenderer builds a renderer writing into dir.
func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{dir: dir}
}

// Dir returns the chart output directory.
func (r *FileRenderer) Dir() string {
	return r.dir
}

// Render plots the points as a pie or bar chart PNG.
func (r *FileRenderer) Render(points []result.Point, kind Kind) (string, error) {
	if len(points) == 0 {
		return "", ErrNoData
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}

	filename := fmt.Sprintf("chart_output_%d.png", time.Now().UnixMilli())
	f, err := os.Create(filepath.Join(r.dir, filename))
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	values := make([]chart.Value, len(points))
	for i, p := range points {
		values[i] = chart.Value{Label: p.Label, Value: p.Value}
	}

	switch kind {
	case Pie:
		pie := chart.PieChart{
			Title:  "Issue Distribution",
			Width:  chartWidth,
			Height: chartHeight,
			Values: values,
		}
		err = pie.Render(chart.PNG, f)
	default:
		bar := chart.BarChart{
			Title:  "Issue Summary",
			Width:  chartWidth,
			Height: chartHeight,
			Bars:   values,
		}
		err = bar.Render(chart.PNG, f)
	}
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	return filename, nil
}
