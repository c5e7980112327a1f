package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/clauselens/backend/model"
)

// analysisInstructions is the fixed template for the clause analysis call. It
// defines the four clause categories, the per-category risk rubric, and the
// required JSON reply shape.
const analysisInstructions = `You are a legal contract analysis assistant. Your role is to analyze contracts and identify key clauses, assess their risk levels, and provide plain-language explanations.

IMPORTANT: You are providing informational analysis only. You are NOT providing legal advice. Always be objective and thorough.

## Your Task

Analyze the provided contract text and identify the following clause types:
1. Liability Clause
2. Termination Clause
3. Confidentiality Clause
4. Payment Terms Clause

For each clause found, you must:
1. Extract the exact text from the contract
2. Assign a risk level (low, medium, or high) based on the criteria below
3. Provide a plain-language explanation of what the clause means
4. List specific reasons for the assigned risk level
5. If the clause is an edge case not covered by standard criteria, set isOverride to true and explain why

## Risk Assessment Criteria

### Liability Clause
| Risk Level | Criteria |
|------------|----------|
| HIGH | Unlimited liability, no cap specified, includes consequential damages, broad indemnification |
| MEDIUM | Cap > 2x contract value, broad damage categories, partial indemnification requirements |
| LOW | Cap at 1-2x contract value, direct damages only, mutual liability limitations |

### Termination Clause
| Risk Level | Criteria |
|------------|----------|
| HIGH | Termination at will with no notice, heavy exit penalties, no cure period for breaches |
| MEDIUM | Short notice period (< 30 days), termination for convenience allowed, partial asset retention |
| LOW | 30+ day notice required, termination for cause only, clear cure periods defined |

### Confidentiality Clause
| Risk Level | Criteria |
|------------|----------|
| HIGH | Perpetual/indefinite term, overly broad scope definition, heavy breach penalties |
| MEDIUM | Duration > 5 years, vague scope boundaries, asymmetric obligations (one-sided) |
| LOW | Reasonable 2-5 year term, clear scope with standard exceptions, mutual obligations |

### Payment Terms Clause
| Risk Level | Criteria |
|------------|----------|
| HIGH | Net 60+ payment terms, late fees > 5%, retention/holdback clauses, no dispute process |
| MEDIUM | Net 45 terms, moderate late fees (2-5%), requires significant upfront payment, limited dispute window |
| LOW | Net 30 or less, standard late fees (< 2%), clear milestone payments, fair dispute resolution process |

## Response Format

You MUST respond with valid JSON in the following format:

{
  "clauses": [
    {
      "type": "liability" | "termination" | "confidentiality" | "payment",
      "originalText": "exact quote from contract",
      "riskLevel": "low" | "medium" | "high",
      "plainLanguageExplanation": "what this means in simple terms",
      "riskReasons": ["reason 1", "reason 2", "reason 3"],
      "isOverride": false,
      "overrideJustification": null
    }
  ],
  "overallRiskLevel": "low" | "medium" | "high",
  "summary": "brief 2-3 sentence summary of the contract and its key risks"
}

## Guidelines

1. Only include clauses that are actually present in the contract
2. If a clause type is not found, do not include it in the response
3. The overall risk level should reflect the highest risk found among all clauses
4. Keep plain-language explanations accessible to non-lawyers
5. Be specific in risk reasons - cite specific terms or conditions
6. If you find unusual or edge-case provisions, use the override mechanism
7. Always be objective and balanced in your assessment

Analyze the following contract:`

// AnalysisRetrySuffix is appended to the prompt for the single retry after a
// reply that failed to parse as the required JSON.
const AnalysisRetrySuffix = "\n\nIMPORTANT: Respond with valid JSON only. No markdown, no explanation, just the JSON object."

// ChatSystemPrompt is the fixed system instruction for the Q&A chat.
const ChatSystemPrompt = `You are a helpful legal contract assistant. Your role is to answer questions about contracts and legal terms in an accessible, informative way.

IMPORTANT GUIDELINES:

1. INFORMATION ONLY: You provide general information, NOT legal advice. Always be clear about this distinction.

2. REFERENCE THE CONTRACT: When answering questions, reference specific sections or clauses from the analyzed contract when relevant.

3. BE ACCESSIBLE: Explain legal concepts in plain language that non-lawyers can understand.

4. BE BALANCED: Present information objectively without recommending specific actions.

5. STAY FOCUSED: While you can answer general legal questions, gently redirect very off-topic questions back to the contract.

6. SAFETY REMINDERS: For questions involving:
   - Signing/not signing decisions
   - Specific dollar amounts or damages
   - Litigation or legal action
   - Regulatory compliance
   - Employment decisions
   - Personal liability

   Include a reminder that they should consult a licensed attorney for their specific situation.

7. NEVER:
   - Recommend signing or not signing a contract
   - Guarantee outcomes or make predictions
   - Provide jurisdiction-specific legal interpretations
   - Claim your analysis is complete or definitive

8. ALWAYS:
   - Acknowledge the limitations of automated analysis
   - Encourage professional legal review for important contracts
   - Be helpful and thorough within appropriate boundaries`

// BuildAnalysisPrompt embeds the extracted contract text in the analysis
// instruction template.
func BuildAnalysisPrompt(contractText string) string {
	return fmt.Sprintf("%s\n\n<contract>\n%s\n</contract>\n\nAnalyze this contract and respond with the JSON format specified above. Ensure your response is valid JSON only, with no additional text before or after.",
		analysisInstructions, contractText)
}

// BuildChatContext assembles the grounding block for a chat conversation: the
// full contract text, the prior analysis when one exists, and the clause the
// user is currently focused on when supplied. Chat stays usable for contracts
// that were never analyzed; the analysis section is simply omitted.
func BuildChatContext(contractText string, analysis *model.Analysis, clauseFocus string) string {
	var b strings.Builder

	b.WriteString("## Contract Being Analyzed\n\n<contract>\n")
	b.WriteString(contractText)
	b.WriteString("\n</contract>\n\n")

	if analysis != nil {
		b.WriteString("## Analysis Summary\n\n")
		b.WriteString(fmt.Sprintf("Overall Risk Level: %s\n\n", strings.ToUpper(analysis.OverallRiskLevel)))
		b.WriteString(fmt.Sprintf("Summary: %s\n\n", analysis.Summary))
		b.WriteString("## Detected Clauses\n\n")

		for _, clause := range analysis.Clauses {
			b.WriteString(fmt.Sprintf("### %s Clause\n", capitalize(clause.Type)))
			b.WriteString(fmt.Sprintf("Risk Level: %s\n", strings.ToUpper(clause.RiskLevel)))
			b.WriteString(fmt.Sprintf("Original Text: %q\n", clause.OriginalText))
			b.WriteString(fmt.Sprintf("Explanation: %s\n", clause.PlainLanguageExplanation))
			b.WriteString("Risk Reasons:\n")
			for _, reason := range clauseReasons(clause) {
				b.WriteString(fmt.Sprintf("- %s\n", reason))
			}
			b.WriteString("\n")
		}
	}

	if clauseFocus != "" {
		b.WriteString(fmt.Sprintf("## Current Focus\n\nThe user is specifically asking about the %s clause. Prioritize information about this clause in your response, while still considering the broader contract context if relevant.\n", clauseFocus))
	}

	return b.String()
}

// ChatTurn is one role-tagged turn of a conversation sent to the gateway.
type ChatTurn struct {
	Role    string
	Content string
}

// BuildChatTurns assembles the outgoing conversation. The context block is
// injected exactly once: into the single fresh turn when there is no history,
// otherwise into the first historical user turn, with the rest of the history
// following verbatim and the new message appended last.
func BuildChatTurns(history []ChatTurn, context string, newMessage string) []ChatTurn {
	if len(history) == 0 {
		return []ChatTurn{{
			Role:    model.RoleUser,
			Content: fmt.Sprintf("%s\n\n---\n\nUser Question: %s", context, newMessage),
		}}
	}

	turns := make([]ChatTurn, 0, len(history)+1)
	turns = append(turns, ChatTurn{
		Role:    model.RoleUser,
		Content: fmt.Sprintf("%s\n\n---\n\nUser Question: %s", context, history[0].Content),
	})
	turns = append(turns, history[1:]...)
	turns = append(turns, ChatTurn{Role: model.RoleUser, Content: newMessage})

	return turns
}

// sensitivePatterns flag questions that need the enhanced disclaimer.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)should i sign`),
	regexp.MustCompile(`(?i)sign this`),
	regexp.MustCompile(`(?i)not sign`),
	regexp.MustCompile(`(?i)sue|lawsuit|litigation|court`),
	regexp.MustCompile(`(?i)how much.*damages`),
	regexp.MustCompile(`\$\d+`),
	regexp.MustCompile(`(?i)liable for`),
	regexp.MustCompile(`(?i)comply|compliance|regulatory`),
	regexp.MustCompile(`(?i)fire|terminate.*employee`),
	regexp.MustCompile(`(?i)personal.*liability`),
	regexp.MustCompile(`(?i)criminal`),
	regexp.MustCompile(`(?i)penalty|penalt(y|ies)`),
}

// sensitiveCategories maps a message to a human-readable topic. Declaration
// order matters: the first matching category wins even when several match.
var sensitiveCategories = []struct {
	pattern *regexp.Regexp
	topic   string
}{
	{regexp.MustCompile(`(?i)sign|signing`), "contract execution decisions"},
	{regexp.MustCompile(`(?i)sue|lawsuit|litigation|court`), "legal action"},
	{regexp.MustCompile(`(?i)damages|\$\d+|liability`), "financial liability"},
	{regexp.MustCompile(`(?i)comply|compliance|regulatory`), "regulatory compliance"},
	{regexp.MustCompile(`(?i)fire|terminate.*employee|employment`), "employment decisions"},
}

// IsSensitiveTopic reports whether the message touches a topic that requires
// the enhanced disclaimer.
func IsSensitiveTopic(message string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

// SensitiveTopic classifies the message into a disclaimer category,
// first-match-wins, with a generic fallback.
func SensitiveTopic(message string) string {
	for _, c := range sensitiveCategories {
		if c.pattern.MatchString(message) {
			return c.topic
		}
	}
	return "this legal matter"
}

// EnhancedDisclaimer is the fixed-form sentence appended to replies on
// sensitive topics.
func EnhancedDisclaimer(topic string) string {
	return fmt.Sprintf("I can provide general information, but this should not be considered legal advice. For decisions about %s, please consult with a licensed attorney who can review your specific situation.", topic)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clauseReasons(clause model.Clause) []string {
	var reasons []string
	if len(clause.RiskReasons) == 0 {
		return reasons
	}
	_ = json.Unmarshal(clause.RiskReasons, &reasons)
	return reasons
}
