package report

import (
	"encoding/json"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// JSONRenderer writes the full report as indented JSON
type JSONRenderer struct{}

// Render implements Renderer
func (JSONRenderer) Render(r *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension implements Renderer
func (JSONRenderer) FileExtension() string {
	return ".json"
}
