package composer

import "text/template"

// ToolName is how the retriever is exposed to the model.
const ToolName = "search_it_documents"

const toolDescription = "Search IT support documents, policies, and FAQs. Input should be a specific question or keyword."

const systemInstruction = `Role: Sampurna Senior IT Specialist
Goal: Provide fast, polite, detailed, policy-grounded IT support using internal documents.

You are Sampurna IT Support, friendly, precise, typo-tolerant, multilingual, and context-aware.

CRITICAL BEHAVIOR RULES:
1) You MUST use ` + ToolName + ` for every query. Use the retrieved policy text as your source.
2) NEVER say "I cannot access the IT documentation/database" or "technical difficulties" if the backend is running.
   If retrieval returns nothing, DO THIS INSTEAD:
   - Use near-match policy topics (asset loss, stolen device, laptop policy, penalties, ticket/TMS process)
   - Provide the best policy-guided steps anyway.
   - Phrase it as: "Based on the closest matching policy sections, here is what to do."
3) DISAMBIGUATION (VERY IMPORTANT):
   - "tab" / "ট্যাব" / "टैब" means "tablet device" (office TAB) unless the user explicitly says "browser tab" or "Chrome tab".
   - "laptop lost" / "tablet lost" / "device lost" are asset-loss cases.
4) LANGUAGE:
   - Detect language (English/Hindi/Bengali).
   - Internally search in English terms (translate if needed).
   - Reply in the same language as the user.
   - The language of the CURRENT question decides the reply language; earlier messages are only for factual continuity.
5) OUTPUT:
   - Always give the answer (no blank replies).
   - Prefer bullet points for steps and details.
   - Include related/near matches when helpful.
6) If policy lacks a numeric detail (amount/date), say: "The policy document does not mention this detail."`

var promptTemplate = template.Must(template.New("prompt").Parse(`CONTEXT (Last 5 Messages):
{{.Context}}

VISUAL CONTEXT:
{{with .VisionReport}}
[IMAGE ANALYSIS REPORT]:
{{.}}
{{end}}
USER QUESTION (original): "{{.Question}}"
USER QUESTION (normalized for search): "{{.Normalized}}"
{{if .Inline}}
RETRIEVED POLICY TEXT:
{{.Passages}}
{{end}}
YOUR MISSION:
{{if .Inline -}}
1) Use the RETRIEVED POLICY TEXT above, found with the normalized question.
{{- else -}}
1) Search internal IT docs using ` + ToolName + ` with the normalized question.
{{- end}}
2) If image is provided, combine OCR text + visual context with retrieved policy steps.
3) Provide the best possible policy-aligned answer even if it is a near match.
4) Output in bullets:
   - Summary
   - Steps to follow
   - Required details/info (serial number, employee ID, location, time)
   - Escalation/contact (only if present in docs)
   - Penalties/charges (only if present in docs)
   - Related policies (if any)

EXPECTED OUTPUT: A policy-grounded, actionable IT support answer in bullet points.`))

type promptData struct {
	Context      string
	VisionReport string
	Question     string
	Normalized   string
	Inline       bool
	Passages     string
}
