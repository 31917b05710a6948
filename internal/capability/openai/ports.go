package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// Port names used in error classification and logs.
const (
	portClassifier = "classifier"
	portGenerator  = "generator"
	portRelevance  = "relevance_judge"
	portSupport    = "support_judge"
	portReviser    = "reviser"
	portUsefulness = "usefulness_judge"
	portRewriter   = "query_rewriter"
)

// maxEvidenceQuotes caps the evidence list a support verdict may carry.
const maxEvidenceQuotes = 3

// Result schemas the model must satisfy. Booleans are pointers so a missing
// key is distinguishable from an explicit false.

type retrieveDecision struct {
	ShouldRetrieve *bool `json:"should_retrieve"`
}

type relevanceDecision struct {
	IsRelevant *bool `json:"is_relevant"`
}

type supportDecision struct {
	IsSup    string   `json:"issup"`
	Evidence []string `json:"evidence"`
}

type usefulnessDecision struct {
	IsUse  string `json:"isuse"`
	Reason string `json:"reason"`
}

type rewriteDecision struct {
	RetrievalQuery string `json:"retrieval_query"`
}

// NeedsRetrieval implements capability.Classifier.
func (c *Client) NeedsRetrieval(ctx context.Context, question string) (bool, error) {
	raw, err := c.generate(ctx, portClassifier, classifierSystem,
		fmt.Sprintf("Question: %s", question), true)
	if err != nil {
		return false, err
	}

	var decision retrieveDecision
	if err := decodeJSON(portClassifier, raw, &decision); err != nil {
		return false, err
	}
	if decision.ShouldRetrieve == nil {
		return false, malformed(portClassifier, "missing should_retrieve", raw)
	}
	return *decision.ShouldRetrieve, nil
}

// Generate implements capability.Generator. With an empty context the model
// answers from general knowledge only; otherwise strictly from context.
func (c *Client) Generate(ctx context.Context, question, context_ string) (string, error) {
	if context_ == "" {
		answer, err := c.generate(ctx, portGenerator, directGenerationSystem, question, false)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(answer), nil
	}

	user := fmt.Sprintf("Question:\n%s\n\nContext:\n%s", question, context_)
	answer, err := c.generate(ctx, portGenerator, contextGenerationSystem, user, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// IsRelevant implements capability.RelevanceJudge.
func (c *Client) IsRelevant(ctx context.Context, question, document string) (bool, error) {
	user := fmt.Sprintf("Question:\n%s\n\nDocument:\n%s", question, document)
	raw, err := c.generate(ctx, portRelevance, relevanceSystem, user, true)
	if err != nil {
		return false, err
	}

	var decision relevanceDecision
	if err := decodeJSON(portRelevance, raw, &decision); err != nil {
		return false, err
	}
	if decision.IsRelevant == nil {
		return false, malformed(portRelevance, "missing is_relevant", raw)
	}
	return *decision.IsRelevant, nil
}

// VerifySupport implements capability.SupportJudge.
func (c *Client) VerifySupport(ctx context.Context, question, answer, context_ string) (capability.SupportVerdict, error) {
	user := fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s\n\nContext:\n%s", question, answer, context_)
	raw, err := c.generate(ctx, portSupport, supportSystem, user, true)
	if err != nil {
		return capability.SupportVerdict{}, err
	}

	var decision supportDecision
	if err := decodeJSON(portSupport, raw, &decision); err != nil {
		return capability.SupportVerdict{}, err
	}

	label := turn.SupportLabel(decision.IsSup)
	if !label.Valid() {
		return capability.SupportVerdict{}, malformed(portSupport,
			fmt.Sprintf("label %q outside enumerated set", decision.IsSup), raw)
	}

	evidence := decision.Evidence
	if len(evidence) > maxEvidenceQuotes {
		evidence = evidence[:maxEvidenceQuotes]
	}

	return capability.SupportVerdict{Label: label, Evidence: evidence}, nil
}

// Revise implements capability.Reviser.
func (c *Client) Revise(ctx context.Context, question, answer, context_ string) (string, error) {
	user := fmt.Sprintf("Question:\n%s\n\nCurrent Answer:\n%s\n\nCONTEXT:\n%s", question, answer, context_)
	revised, err := c.generate(ctx, portReviser, reviserSystem, user, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(revised), nil
}

// IsUseful implements capability.UsefulnessJudge.
func (c *Client) IsUseful(ctx context.Context, question, answer string) (capability.UsefulnessVerdict, error) {
	user := fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s", question, answer)
	raw, err := c.generate(ctx, portUsefulness, usefulnessSystem, user, true)
	if err != nil {
		return capability.UsefulnessVerdict{}, err
	}

	var decision usefulnessDecision
	if err := decodeJSON(portUsefulness, raw, &decision); err != nil {
		return capability.UsefulnessVerdict{}, err
	}

	label := turn.UsefulnessLabel(decision.IsUse)
	if !label.Valid() {
		return capability.UsefulnessVerdict{}, malformed(portUsefulness,
			fmt.Sprintf("label %q outside enumerated set", decision.IsUse), raw)
	}

	return capability.UsefulnessVerdict{
		Label:  label,
		Reason: firstLine(decision.Reason),
	}, nil
}

// Rewrite implements capability.QueryRewriter.
func (c *Client) Rewrite(ctx context.Context, question, priorQuery, answer string) (string, error) {
	user := fmt.Sprintf("QUESTION:\n%s\n\nPrevious retrieval query:\n%s\n\nAnswer (if any):\n%s",
		question, priorQuery, answer)
	raw, err := c.generate(ctx, portRewriter, rewriterSystem, user, true)
	if err != nil {
		return "", err
	}

	var decision rewriteDecision
	if err := decodeJSON(portRewriter, raw, &decision); err != nil {
		return "", err
	}

	query := strings.TrimSpace(decision.RetrievalQuery)
	if query == "" {
		return "", malformed(portRewriter, "empty retrieval_query", raw)
	}
	return query, nil
}

// decodeJSON parses a model reply into the port's result schema. Models in
// JSON mode occasionally wrap output in markdown fences; strip them before
// failing.
func decodeJSON(port, raw string, v any) error {
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return malformed(port, err.Error(), raw)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func malformed(port, detail, raw string) error {
	return capability.NewError(port, capability.ErrMalformed,
		fmt.Errorf("%s (raw: %.200s)", detail, raw))
}

// firstLine truncates a judge rationale to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
