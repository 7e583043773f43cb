package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
	"github.com/Epistemic-Technology/article-summarizer/internal/summarize"
)

type SummaryPlanQuery struct {
	DocumentID string `json:"document_id,omitempty"`
	Text       string `json:"text,omitempty"` // Literal text to plan instead of a stored document
	Level      string `json:"level,omitempty"`
	Method     string `json:"method,omitempty"`
}

type SummaryPlanResponse struct {
	DocumentID      string `json:"document_id,omitempty"`
	Level           string `json:"level"`
	Method          string `json:"method"`
	InputChars      int    `json:"input_chars"`
	TextChars       int    `json:"text_chars"`
	Truncated       bool   `json:"truncated"`
	ChunkCount      int    `json:"chunk_count"`
	CompletionCalls int    `json:"completion_calls"`
	MapTokens       int    `json:"map_tokens"`
	ReduceTokens    int    `json:"reduce_tokens"`
	MaxPages        int    `json:"max_pages"`
	MaxSentences    int    `json:"max_sentences"`
	TargetWords     int    `json:"target_words"`
}

func SummaryPlanTool() *mcp.Tool {
	inputschema, err := jsonschema.For[SummaryPlanQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "summary-plan",
		Description: "Describe how a summary would be produced without generating it: the method that would run, text length after the intake ceiling, fragment count, number of completion calls, and the level's token budgets.",
		InputSchema: inputschema,
	}
}

func SummaryPlanToolHandler(ctx context.Context, req *mcp.CallToolRequest, query SummaryPlanQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *SummaryPlanResponse, error) {
	log.Info("summary-plan tool called")
	plan, err := svc.PlanSummary(ctx, operations.PlanRequest{
		DocumentID: query.DocumentID,
		Text:       query.Text,
		Level:      query.Level,
		Method:     query.Method,
	})
	if err != nil {
		return nil, nil, err
	}

	calls := 0
	switch {
	case plan.MapCalls > 0:
		calls = plan.MapCalls + 1
	case plan.Method != summarize.MethodExtractive:
		calls = 1
	}

	return nil, &SummaryPlanResponse{
		DocumentID:      plan.DocumentID,
		Level:           string(plan.Level),
		Method:          string(plan.Method),
		InputChars:      plan.InputChars,
		TextChars:       plan.TextChars,
		Truncated:       plan.Truncated,
		ChunkCount:      plan.ChunkCount,
		CompletionCalls: calls,
		MapTokens:       plan.MapTokens,
		ReduceTokens:    plan.ReduceTokens,
		MaxPages:        plan.MaxPages,
		MaxSentences:    plan.MaxSentences,
		TargetWords:     plan.TargetWords,
	}, nil
}
