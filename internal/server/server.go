package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Gere2/AIGNITE/internal/assess"
	"github.com/Gere2/AIGNITE/internal/tools"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// New creates a fully configured MCP server with all tools registered.
// listLimit caps list_assessments; zero means no cap.
func New(svc *assess.Service, listLimit int) *mcp.Server {
	at := &tools.AssessmentTools{Service: svc, ListLimit: listLimit}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "aignite",
		Version: Version,
	}, nil)

	// Assessment tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "assess_risk",
		Description: "Assess the fire risk of an incident and store the result (optional manual id replaces an existing record)",
	}, at.AssessRisk)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "preview_risk",
		Description: "Assess the fire risk of an incident without storing anything",
	}, at.PreviewRisk)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "validate_attributes",
		Description: "Check incident codes against the vocabulary and list every violation",
	}, at.ValidateAttributes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "explain_encoding",
		Description: "Show which model columns an incident activates and which codes the model does not know",
	}, at.ExplainEncoding)

	// Stored assessments
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_assessment",
		Description: "Retrieve one stored assessment by id",
	}, at.GetAssessment)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_assessments",
		Description: "List stored assessments, newest first",
	}, at.ListAssessments)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_assessment",
		Description: "Permanently delete a stored assessment by id",
	}, at.DeleteAssessment)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "assessment_stats",
		Description: "Count stored assessments per risk level and per day",
	}, at.AssessmentStats)

	// Reference data
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_vocabulary",
		Description: "List the valid codes and descriptions for every incident attribute",
	}, at.ListVocabulary)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "model_info",
		Description: "Describe the loaded model artifact",
	}, at.ModelInfo)

	return srv
}
