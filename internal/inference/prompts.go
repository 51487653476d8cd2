package inference

// Analysis kinds understood by the pipeline.
const (
	KindSummary      = "summary"
	KindEntities     = "entities"
	KindClauses      = "clauses"
	KindRiskAnalysis = "risk_analysis"
	KindComparison   = "comparison"
)

// Kinds lists the per-document analysis kinds in fan-out order.
var Kinds = []string{KindSummary, KindEntities, KindClauses, KindRiskAnalysis}

// Default generation parameters for document analysis calls.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
)

var systemInstructions = map[string]string{
	KindSummary: `You are a legal document analyzer. Provide a concise summary of the following document,
highlighting key points, obligations, and any potential risks. Format your response in markdown.`,

	KindEntities: `Identify and list all legal entities mentioned in the document, including their roles
and relationships. Include any relevant jurisdiction information.`,

	KindClauses: `Analyze and list all significant legal clauses in the document. For each clause,
provide: 1) Type of clause, 2) Summary of obligations, 3) Any conditions or triggers,
4) Potential risks or implications.`,

	KindRiskAnalysis: `Conduct a comprehensive risk analysis of the document. Identify potential legal,
business, and compliance risks. Rate each risk on a scale of 1-5 and provide mitigation suggestions.`,
}

// ComparisonInstruction is the system instruction for two-document comparison.
const ComparisonInstruction = `Compare the following two legal documents. Identify:
1. Key differences in terms and conditions
2. Changes in obligations or rights
3. Any additions or removals of clauses
4. Changes in risk profile
Format your response in markdown with clear sections.`

// SynthesisInstruction merges per-chunk summaries of a large document.
const SynthesisInstruction = `Synthesize the following document analyses into a single coherent summary:`

// InstructionFor returns the system instruction for an analysis kind,
// falling back to the summary instruction for unknown kinds.
func InstructionFor(kind string) string {
	if instr, ok := systemInstructions[kind]; ok {
		return instr
	}
	return systemInstructions[KindSummary]
}
