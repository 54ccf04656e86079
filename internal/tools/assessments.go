package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Gere2/AIGNITE/internal/assess"
	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/predictor"
	"github.com/Gere2/AIGNITE/internal/storage"
)

// AssessmentTools holds references needed by assessment tool handlers.
type AssessmentTools struct {
	Service   *assess.Service
	ListLimit int
}

// --- Input types ---

type AttributesInput struct {
	HeatSource       string   `json:"heat_source" jsonschema:"Heat source code (see list_vocabulary)"`
	Materials        []string `json:"materials" jsonschema:"One or more material codes; several codes are assessed separately and averaged"`
	StructuralStatus string   `json:"structural_status" jsonschema:"Structural status code"`
	Detector         string   `json:"detector" jsonschema:"Detector presence code (Y or N)"`
	DetectorType     string   `json:"detector_type" jsonschema:"Detector type code"`
	Area             float64  `json:"area" jsonschema:"Affected area, must be greater than 0"`
}

func (in AttributesInput) record() models.AttributeRecord {
	return models.AttributeRecord{
		HeatSource:       in.HeatSource,
		Materials:        in.Materials,
		StructuralStatus: in.StructuralStatus,
		Detector:         in.Detector,
		DetectorType:     in.DetectorType,
		Area:             in.Area,
	}
}

type AssessRiskInput struct {
	ID               int64    `json:"id,omitempty" jsonschema:"Optional manual id up to 9007199254740991; a record already stored under this id is replaced. Zero or negative means auto-assign"`
	HeatSource       string   `json:"heat_source" jsonschema:"Heat source code (see list_vocabulary)"`
	Materials        []string `json:"materials" jsonschema:"One or more material codes; several codes are assessed separately and averaged"`
	StructuralStatus string   `json:"structural_status" jsonschema:"Structural status code"`
	Detector         string   `json:"detector" jsonschema:"Detector presence code (Y or N)"`
	DetectorType     string   `json:"detector_type" jsonschema:"Detector type code"`
	Area             float64  `json:"area" jsonschema:"Affected area, must be greater than 0"`
}

func (in AssessRiskInput) attributes() AttributesInput {
	return AttributesInput{
		HeatSource:       in.HeatSource,
		Materials:        in.Materials,
		StructuralStatus: in.StructuralStatus,
		Detector:         in.Detector,
		DetectorType:     in.DetectorType,
		Area:             in.Area,
	}
}

type AssessmentIDInput struct {
	ID int64 `json:"id" jsonschema:"Assessment id"`
}

type ListAssessmentsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of records, newest first (default 50)"`
}

// --- Outputs ---

type assessmentResult struct {
	*models.PredictionRecord
	Display Display `json:"display"`
}

type previewResult struct {
	Prediction models.Prediction `json:"prediction"`
	Display    Display           `json:"display"`
}

type validationResult struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

// --- Handlers ---

func (t *AssessmentTools) AssessRisk(ctx context.Context, _ *mcp.CallToolRequest, input AssessRiskInput) (*mcp.CallToolResult, any, error) {
	if input.ID > storage.MaxManualID {
		return toolError("Assessment id must not exceed %d", storage.MaxManualID), nil, nil
	}
	rec, err := t.Service.Record(ctx, input.attributes().record(), input.ID)
	if err != nil {
		return failure("Failed to assess risk", err), nil, nil
	}
	return toolJSON(assessmentResult{PredictionRecord: rec, Display: DisplayFor(rec.Prediction.Label)})
}

func (t *AssessmentTools) PreviewRisk(ctx context.Context, _ *mcp.CallToolRequest, input AttributesInput) (*mcp.CallToolResult, any, error) {
	pred, err := t.Service.Assess(ctx, input.record())
	if err != nil {
		return failure("Failed to assess risk", err), nil, nil
	}
	return toolJSON(previewResult{Prediction: pred, Display: DisplayFor(pred.Label)})
}

func (t *AssessmentTools) ValidateAttributes(_ context.Context, _ *mcp.CallToolRequest, input AttributesInput) (*mcp.CallToolResult, any, error) {
	ok, violations := t.Service.Validate(input.record())
	if violations == nil {
		violations = []string{}
	}
	return toolJSON(validationResult{Valid: ok, Violations: violations})
}

func (t *AssessmentTools) ExplainEncoding(_ context.Context, _ *mcp.CallToolRequest, input AttributesInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Service.Explain(input.record()))
}

func (t *AssessmentTools) GetAssessment(ctx context.Context, _ *mcp.CallToolRequest, input AssessmentIDInput) (*mcp.CallToolResult, any, error) {
	rec, err := t.Service.Get(ctx, input.ID)
	if err != nil {
		return failure("Failed to get assessment", err), nil, nil
	}
	return toolJSON(assessmentResult{PredictionRecord: rec, Display: DisplayFor(rec.Prediction.Label)})
}

func (t *AssessmentTools) ListAssessments(ctx context.Context, _ *mcp.CallToolRequest, input ListAssessmentsInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	if t.ListLimit > 0 && limit > t.ListLimit {
		limit = t.ListLimit
	}

	records, err := t.Service.List(ctx, limit)
	if err != nil {
		return failure("Failed to list assessments", err), nil, nil
	}
	return toolJSON(records)
}

func (t *AssessmentTools) DeleteAssessment(ctx context.Context, _ *mcp.CallToolRequest, input AssessmentIDInput) (*mcp.CallToolResult, any, error) {
	removed, err := t.Service.Delete(ctx, input.ID)
	if err != nil {
		return failure("Failed to delete assessment", err), nil, nil
	}
	if !removed {
		return toolText(fmt.Sprintf("No assessment with id %d; nothing deleted.", input.ID)), nil, nil
	}
	return toolText(fmt.Sprintf("Assessment %d deleted.", input.ID)), nil, nil
}

func (t *AssessmentTools) AssessmentStats(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	stats, err := t.Service.Stats(ctx)
	if err != nil {
		return failure("Failed to compute statistics", err), nil, nil
	}
	return toolJSON(stats)
}

func (t *AssessmentTools) ListVocabulary(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Service.Vocabulary().Tables())
}

func (t *AssessmentTools) ModelInfo(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Service.ModelInfo())
}

// failure turns a service error into a message the caller can act on.
func failure(prefix string, err error) *mcp.CallToolResult {
	var verr *assess.ValidationError
	switch {
	case errors.As(err, &verr):
		return toolError("Validation failed:\n- %s", strings.Join(verr.Violations, "\n- "))
	case errors.Is(err, predictor.ErrEmptySelection):
		return toolError("Select at least one material.")
	case errors.Is(err, assess.ErrNotFound):
		return toolError("%v", err)
	case errors.Is(err, storage.ErrIDOutOfRange):
		return toolError("Assessment id must not exceed %d", storage.MaxManualID)
	case errors.Is(err, storage.ErrStoreUnavailable):
		return toolError("%s: prediction store unavailable, try again: %v", prefix, err)
	}
	return toolError("%s: %v", prefix, err)
}
