package pivot

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/carrier-dashboard/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultPresetName names the layout the pivot view starts with.
const DefaultPresetName = "default"

// Aggregator names accepted by the cross-tabulation.
const (
	AggCount       = "Count"
	AggSum         = "Sum"
	AggAverage     = "Average"
	AggCountUnique = "Count Unique Values"
)

// Renderers the UI knows how to draw.
var Renderers = []string{"Table", "Table Barchart", "Heatmap", "Row Heatmap", "Col Heatmap"}

// Aggregators lists the supported aggregator names.
var Aggregators = []string{AggCount, AggSum, AggAverage, AggCountUnique}

// DefaultSettings is the initial pivot layout: drivers summed by entity type and operating status.
func DefaultSettings() models.PivotSettings {
	return models.PivotSettings{
		Name:           DefaultPresetName,
		Rows:           []string{"entity_type"},
		Cols:           []string{"operating_status"},
		AggregatorName: AggSum,
		Vals:           []string{"drivers"},
		RendererName:   "Table",
	}
}

// presetFile is the YAML document layout.
type presetFile struct {
	Presets []models.PivotSettings `yaml:"presets"`
}

// LoadPresets reads named layouts from a YAML file. A missing file yields only the default.
func LoadPresets(path string) ([]models.PivotSettings, error) {
	if path == "" {
		return []models.PivotSettings{DefaultSettings()}, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.PivotSettings{DefaultSettings()}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadPresetsFromReader(file)
}

// LoadPresetsFromReader parses presets from r. The default layout is always first; a file
// entry named "default" replaces it.
func LoadPresetsFromReader(r io.Reader) ([]models.PivotSettings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pivot presets: %w", err)
	}

	out := []models.PivotSettings{DefaultSettings()}
	seen := map[string]int{DefaultPresetName: 0}
	for i, p := range doc.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("pivot preset %d has no name", i)
		}
		p = Normalize(p)
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("pivot preset %q: %w", p.Name, err)
		}
		if idx, ok := seen[p.Name]; ok {
			out[idx] = p
			continue
		}
		seen[p.Name] = len(out)
		out = append(out, p)
	}
	return out, nil
}

// Normalize fills in the aggregator and renderer when left empty.
func Normalize(s models.PivotSettings) models.PivotSettings {
	if s.AggregatorName == "" {
		s.AggregatorName = AggCount
	}
	if s.RendererName == "" {
		s.RendererName = "Table"
	}
	if s.Rows == nil {
		s.Rows = []string{}
	}
	if s.Cols == nil {
		s.Cols = []string{}
	}
	if s.Vals == nil {
		s.Vals = []string{}
	}
	return s
}

// ErrInvalidSettings reports an unusable pivot layout.
var ErrInvalidSettings = errors.New("pivot: invalid settings")

// Validate checks the aggregator and its value fields.
func Validate(s models.PivotSettings) error {
	switch s.AggregatorName {
	case AggCount:
	case AggSum, AggAverage, AggCountUnique:
		if len(s.Vals) != 1 {
			return fmt.Errorf("%w: aggregator %q needs exactly one value field", ErrInvalidSettings, s.AggregatorName)
		}
	default:
		return fmt.Errorf("%w: unknown aggregator %q", ErrInvalidSettings, s.AggregatorName)
	}
	known := false
	for _, r := range Renderers {
		if r == s.RendererName {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown renderer %q", ErrInvalidSettings, s.RendererName)
	}
	return nil
}
