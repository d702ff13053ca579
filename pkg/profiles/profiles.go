// Package profiles holds the industry prompt profiles. The registry is built
// once at init and is read-only afterwards; research runs receive a profile
// by pointer and never mutate it.
package profiles

import (
	"sort"
	"strings"
)

// Profile bundles everything industry-specific: display name, report filename
// prefix, the two system prompts, the analyzer keyword list, and the three
// prompt templates. Templates carry named placeholders ({initial_query},
// {memory_context_for_llm}, {industry_name}, {final_memory_context},
// {analysis_section}) that the fill methods substitute.
type Profile struct {
	ID             string
	Name           string
	FilenamePrefix string

	AssistantSystemPrompt   string
	SynthesizerSystemPrompt string

	AnalyzerKeywords []string

	planTemplate       string
	reflectionTemplate string
	synthesisTemplate  string
}

// PlanPrompt renders the planning template for the user's question.
func (p *Profile) PlanPrompt(initialQuery string) string {
	return strings.NewReplacer(
		"{industry_name}", p.Name,
		"{initial_query}", initialQuery,
	).Replace(p.planTemplate)
}

// ReflectionPrompt renders the reflection template over the bounded evidence
// context.
func (p *Profile) ReflectionPrompt(initialQuery, memoryContext string) string {
	return strings.NewReplacer(
		"{industry_name}", p.Name,
		"{initial_query}", initialQuery,
		"{memory_context_for_llm}", memoryContext,
	).Replace(p.reflectionTemplate)
}

// SynthesisPrompt renders the final report template. analysisSection may be
// empty, in which case the template's placeholder collapses cleanly.
func (p *Profile) SynthesisPrompt(initialQuery, finalContext, analysisSection string) string {
	return strings.NewReplacer(
		"{industry_name}", p.Name,
		"{initial_query}", initialQuery,
		"{final_memory_context}", finalContext,
		"{analysis_section}", analysisSection,
	).Replace(p.synthesisTemplate)
}

// Get returns the profile registered under id.
func Get(id string) (*Profile, bool) {
	p, ok := registry[id]
	return p, ok
}

// IDs returns the registered profile identifiers in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var registry = map[string]*Profile{
	"deepResearch": {
		ID:             "deepResearch",
		Name:           "Deep Research",
		FilenamePrefix: "deepResearch_",
		AssistantSystemPrompt: "You are a senior analyst. Follow the " +
			"instructions carefully and answer in the requested format.",
		SynthesizerSystemPrompt: "You are a senior analyst producing an " +
			"objective synthesis of collected information. Follow the " +
			"instructions strictly and cite sources using the " +
			"`[Source: URL]` format.",
		AnalyzerKeywords:   nil,
		planTemplate:       deepResearchPlanTemplate,
		reflectionTemplate: genericReflectionTemplate,
		synthesisTemplate:  genericSynthesisTemplate,
	},
	"finance": {
		ID:             "finance",
		Name:           "Financial Markets",
		FilenamePrefix: "financial_markets_",
		AssistantSystemPrompt: "You are a senior research assistant " +
			"specialising in financial market conditions. Follow the " +
			"instructions carefully and answer in the requested format.",
		SynthesizerSystemPrompt: "You are a professional financial markets " +
			"analyst producing objective market analysis reports from " +
			"collected information. Follow the instructions strictly and " +
			"cite sources using the `[Source: URL]` format.",
		AnalyzerKeywords: []string{
			"stock", "equities", "index", "S&P 500", "Nasdaq", "Dow Jones",
			"FTSE", "Hang Seng", "rally", "decline", "gain", "loss",
			"volume", "turnover", "valuation", "P/E", "sector", "earnings",
			"macroeconomic", "interest rate", "inflation", "rate hike",
			"rate cut", "guidance", "bullish", "bearish", "risk",
			"opportunity", "forecast", "outlook", "IPO", "merger",
			"acquisition", "central bank",
		},
		planTemplate:       industryPlanTemplate,
		reflectionTemplate: genericReflectionTemplate,
		synthesisTemplate:  genericSynthesisTemplate,
	},
	"tech": {
		ID:             "tech",
		Name:           "Technology Industry",
		FilenamePrefix: "technology_industry_",
		AssistantSystemPrompt: "You are a senior research assistant " +
			"specialising in technology industry developments. Follow the " +
			"instructions carefully and answer in the requested format.",
		SynthesizerSystemPrompt: "You are a professional technology industry " +
			"analyst producing objective industry analysis reports from " +
			"collected information. Follow the instructions strictly and " +
			"cite sources using the `[Source: URL]` format.",
		AnalyzerKeywords: []string{
			"artificial intelligence", "AI", "machine learning", "chip",
			"semiconductor", "cloud computing", "big data", "software",
			"hardware", "internet", "SaaS", "PaaS", "IaaS", "IoT", "5G",
			"6G", "VR", "AR", "startup", "funding", "venture capital",
			"IPO", "layoff", "merger", "acquisition", "M&A", "Apple",
			"Google", "Microsoft", "Amazon", "Meta", "Nvidia", "innovation",
			"R&D", "patent", "regulation", "data privacy", "cybersecurity",
		},
		planTemplate:       industryPlanTemplate,
		reflectionTemplate: genericReflectionTemplate,
		synthesisTemplate:  genericSynthesisTemplate,
	},
}

const deepResearchPlanTemplate = `You are an expert at decomposing questions. Break the user's main question into a list of specific, searchable sub-questions that together cover the topic comprehensively.

Work through:
1. Question type (one short phrase)
2. Core analysis dimensions (3-5 key axes)
3. Layered sub-question tree (at least 3 levels)
4. Boundary-confirming questions (2-3 validation questions)

Decomposition method: MECE horizontally (mutually exclusive, collectively exhaustive), 5-why vertically, 5W2H for the boundaries.

Respond strictly in the following JSON format, with no extra commentary (the entries below are illustrative only):
{
  "subqueries": [
    "Sub-question 1: What are the core keywords and concepts in the user's question?",
    "Sub-question 2: What time range or recency requirement does the question imply?",
    "Sub-question 3: Which geographies or regions does the question concern?",
    "Sub-question 4: What are the main influencing factors to analyse?",
    "Sub-question 5: Who are the stakeholders or entities involved?",
    "Sub-question 6: What reference points should be compared against (if applicable)?",
    "Sub-question 7: What quantitative indicators or evaluation criteria apply?",
    "Sub-question 8: Are there special cases or boundary conditions to exclude?"
  ]
}

User's main question: "{initial_query}"`

const industryPlanTemplate = `Break the user's main question about {industry_name} into a list of specific, searchable sub-questions that together cover the topic comprehensively.
Consider market overview, key indicators and benchmarks, notable sector and company developments, relevant news events, macroeconomic and policy impact, and technical trends where applicable.
Respond strictly in the following JSON format, with no extra commentary:
{
  "subqueries": [
    "Sub-question 1: How is {industry_name} performing overall?",
    "Sub-question 2: How are the main benchmarks (indices, rates) behaving?",
    "Sub-question 3: Which hot areas or themes deserve attention?",
    "Sub-question 4: What significant industry news or policy has been released?",
    "Sub-question 5: (Optional, if applicable) How are specific companies or assets performing?"
  ]
}

User's main question: "{initial_query}"`

const genericReflectionTemplate = `As a senior research evaluator for {industry_name}, assess the information collected so far to answer the user's original question.

User's original question: "{initial_query}"

Summaries collected so far (possibly truncated):
{memory_context_for_llm}

Evaluate:
1. can_answer: Is this information comprehensive enough to answer the original question? (true/false)
2. irrelevant_urls: Are any entries clearly irrelevant or of low value for answering the original question? (List only their source URLs; use an empty list [] if none.)
3. new_subqueries: Given the current information and the original question, which specific NEW sub-questions would obtain key data or clarify the current situation? (Return an empty list [] if the information is sufficient.)

Respond strictly in the following JSON format, with no extra commentary:
{
    "can_answer": boolean,
    "irrelevant_urls": ["url1", "url2", ...],
    "new_subqueries": ["new question 1", "new question 2", ...]
}`

const genericSynthesisTemplate = `You are a professional {industry_name} analyst. Based on the information fragments collected through web search below, write a comprehensive, well-structured, objective research report that answers the user's original question.

The user's original question: "{initial_query}"

Collected information (mostly news and web page summaries):
--- BEGIN INFORMATION ---
{final_memory_context}
--- END INFORMATION ---
{analysis_section}
Follow these requirements strictly:
1. Base the report ENTIRELY on the information fragments above. Do not add outside knowledge, personal opinions, or unverified precise figures (unless stated in the fragments).
2. Organise the report clearly and answer the original question directly. Use headings and subheadings where helpful.
3. Cite sources throughout. Whenever you use a piece of information, append its source URL in square brackets in the form ` + "`[Source: URL]`" + `, e.g. Company X released a new product [Source: http://example.com/news1]. Keep URLs complete and inside the brackets.
4. If a "data scan summary" is provided, weave its findings (keyword frequencies, detected values or percentages) into the report where appropriate, noting that it is only a preliminary scan of the provided text. Do not present scanned numbers as precise real-time data.
5. Keep the language professional, objective and neutral. Avoid overly optimistic or pessimistic wording, and avoid direct business advice. Focus on summarising and presenting the collected information.
6. If fragments contradict each other, point that out objectively.
7. If the collected information is insufficient to answer some aspect of the question, say so explicitly in the report.
8. The report may end with a brief summary or outlook, grounded strictly in the provided information.

Begin your {industry_name} analysis report:`
