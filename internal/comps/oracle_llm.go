package comps

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"compiq/internal/oracle"
)

// LLMOracle implements Oracle over an LLM client. Prompts are fully
// dynamic: no hardcoded company names or industry-specific logic, so
// the pipeline works across any sector.
type LLMOracle struct {
	client oracle.LLMClient
	logger *zap.Logger
}

// NewLLMOracle creates an oracle backed by the given LLM client.
func NewLLMOracle(client oracle.LLMClient, logger *zap.Logger) *LLMOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMOracle{client: client, logger: logger}
}

// Analyze extracts specialization, focus areas, and business model.
func (o *LLMOracle) Analyze(ctx context.Context, target Target) (TargetProfile, error) {
	sic := target.PrimarySIC
	if sic == "" {
		sic = "Not provided"
	}

	prompt := fmt.Sprintf(`You are an expert investment analyst. Analyze this company deeply to guide comparable company selection.

COMPANY:
Name: %s
Description: %s
Primary SIC: %s

ANALYSIS REQUIRED:

1. SPECIALIZATION LEVEL (0.0 to 1.0):
   - 1.0 = Highly specialized (serves one narrow niche)
   - 0.7 = Moderately specialized (serves one industry vertical)
   - 0.4 = Multi-segment (serves 2-3 industries)
   - 0.0 = Highly diversified (serves many industries)

2. CORE FOCUS AREAS (extract 3-7 key terms)

3. BUSINESS MODEL:
   Choose ONE: "consulting", "software_vendor", "managed_services", "hardware", "platform", "hybrid", "other"

4. KEY DIFFERENTIATORS (2-4 specific characteristics)

5. EXCLUSION CRITERIA:
   - Company types to avoid
   - Characteristics that would make a company non-comparable

Return ONLY valid JSON:
{
  "specialization_level": 0.0-1.0,
  "core_focus_areas": ["term1", "term2", ...],
  "business_model": "...",
  "key_differentiators": ["diff1", "diff2", ...],
  "exclusion_criteria": {
    "avoid_company_types": ["type1", "type2", ...],
    "avoid_characteristics": ["char1", "char2", ...]
  },
  "ideal_comparable_profile": "One sentence describing the ideal comparable company"
}`, target.Name, target.Description, sic)

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return TargetProfile{}, fmt.Errorf("target analysis failed: %w", err)
	}

	var profile TargetProfile
	if err := oracle.UnmarshalObject(resp, &profile); err != nil {
		return TargetProfile{}, fmt.Errorf("target analysis parse failed: %w", err)
	}

	if profile.BusinessModel == "" {
		profile.BusinessModel = ModelOther
	}
	return profile, nil
}

// GenerateCandidates suggests up to maxCandidates publicly traded
// comparables using the strategy derived from the target profile.
func (o *LLMOracle) GenerateCandidates(ctx context.Context, target Target, profile TargetProfile, strategy SearchStrategy, maxCandidates int) ([]Candidate, error) {
	directives := strategyDirectives(strategy, profile)

	prompt := fmt.Sprintf(`You are an expert equity research analyst finding publicly-traded comparable companies.

TARGET COMPANY (Private):
Name: %s
Description: %s
Business Model: %s

%s

CRITICAL REQUIREMENTS:
1. Only suggest companies that are CURRENTLY publicly traded
2. DO NOT include the target company itself (%s) in your suggestions
3. DO NOT include companies that have been:
   - Acquired by another company (even recently)
   - Taken private by PE firms or other buyers
   - Merged out of existence
   - Delisted from their exchange
4. Verify each company is still independently trading before including it
5. If a company has undergone major business changes (e.g., divested key segments),
   note this in the description

INSTRUCTIONS:
1. Identify %d CURRENTLY PUBLICLY TRADED companies
2. Double-check each is still trading independently
3. Prioritize quality matches over quantity
4. Include exchange and ticker for verification

Return ONLY a valid JSON array:
[
  {
    "name": "Exact legal company name",
    "url": "https://company-website.com",
    "exchange": "NYSE/NASDAQ/TSE/LSE/etc",
    "ticker": "TICK",
    "business_activity": "Detailed description of main products/services",
    "customer_segment": "Specific industries and customer types served",
    "SIC_industry": "Primary SIC classification",
    "revenue_focus_explanation": "How this matches target's focus",
    "trading_status_note": "Confirm currently trading, note any recent changes"
  }
]`, target.Name, target.Description, profile.BusinessModel, directives, target.Name, maxCandidates)

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("candidate generation failed: %w", err)
	}

	var candidates []Candidate
	if err := oracle.UnmarshalArray(resp, &candidates); err != nil {
		return nil, fmt.Errorf("candidate generation parse failed: %w", err)
	}
	return candidates, nil
}

// strategyDirectives renders the search-strategy block of the
// generation prompt.
func strategyDirectives(strategy SearchStrategy, profile TargetProfile) string {
	focus := strings.Join(headTerms(profile.CoreFocusAreas, 5), ", ")

	switch strategy.Mode {
	case ModeBroader:
		return fmt.Sprintf(`BROADER SEARCH MODE (Initial search found insufficient matches):

RELAXED REQUIREMENTS:
1. Companies in RELATED industries: %s
2. Similar business model: %s
3. Can include companies where target's focus is 20-40%% of revenue
4. Include adjacent/upstream/downstream industries`, focus, profile.BusinessModel)

	case ModeStrict:
		return fmt.Sprintf(`HIGHLY SPECIALIZED TARGET (level: %.2f):

STRICT REQUIREMENTS:
1. >50%% revenue from: %s
2. Business model alignment: %s
3. AVOID diversified conglomerates where focus is <20%% of revenue

AVOID: %s`, profile.SpecializationLevel, focus, profile.BusinessModel,
			strings.Join(profile.ExclusionCriteria.AvoidCompanyTypes, ", "))

	default:
		return fmt.Sprintf(`MODERATE/DIVERSIFIED TARGET (level: %.2f):

REQUIREMENTS:
1. >30%% exposure to: %s
2. Similar business model: %s`, profile.SpecializationLevel, focus, profile.BusinessModel)
	}
}

// VerifyStatus checks the trading status of a single candidate.
func (o *LLMOracle) VerifyStatus(ctx context.Context, c Candidate) (VerificationRecord, error) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Ticker))

	prompt := fmt.Sprintf(`You are a financial data analyst verifying public company trading status.

Verify the current trading status of this company:
- Company Name: %s
- Ticker Symbol: %s
- Listed Exchange: %s

VERIFICATION TASKS:
1. Is this stock CURRENTLY trading on %s (as of today's date)?
2. Has this company been ACQUIRED by another company? If so, by whom and when?
3. Has this company MERGED with another company? If so, details?
4. Has this company been TAKEN PRIVATE? If so, by whom and when?
5. Has this company been DELISTED for any other reason?
6. Has this company undergone MATERIAL BUSINESS CHANGES that significantly
   altered its core business (e.g., divested major segments, pivoted industries)?

IMPORTANT: Be thorough. Many companies suggested as comparables have been
acquired in recent years. Check carefully for M&A activity.

Return ONLY a JSON object:
{
    "ticker": "%s",
    "name": "%s",
    "exchange": "%s",
    "is_publicly_traded": true/false/null,
    "status": "ACTIVE" | "ACQUIRED" | "MERGED" | "DELISTED" | "PRIVATE" | "UNCERTAIN",
    "confidence": "HIGH" | "MEDIUM" | "LOW",
    "reason": "Detailed explanation of current status",
    "acquirer": "Name and ticker of acquirer if applicable, null otherwise",
    "date_changed": "YYYY-MM-DD if status changed, null if still active",
    "material_changes": "Description of any major business changes, null if none"
}`, c.Name, ticker, c.Exchange, c.Exchange, ticker, c.Name, c.Exchange)

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return VerificationRecord{}, fmt.Errorf("status verification failed: %w", err)
	}

	var rec VerificationRecord
	if err := oracle.UnmarshalObject(resp, &rec); err != nil {
		return VerificationRecord{}, fmt.Errorf("status verification parse failed: %w", err)
	}

	fillVerificationDefaults(&rec, c)
	return rec, nil
}

// VerifyStatusBatch checks a batch of candidates in one call.
func (o *LLMOracle) VerifyStatusBatch(ctx context.Context, batch []Candidate) ([]VerificationRecord, error) {
	var list strings.Builder
	for i, c := range batch {
		fmt.Fprintf(&list, "%d. %s (Ticker: %s, Exchange: %s)\n", i+1, orNA(c.Name), orNA(c.Ticker), orNA(c.Exchange))
	}

	prompt := fmt.Sprintf(`You are a financial data analyst verifying public company trading status.

Verify the CURRENT trading status of each company below. For each one, determine:
1. Is it currently trading on the stated exchange?
2. Has it been acquired, merged, or taken private?
3. Has it been delisted?
4. Has it undergone material business changes?

Companies to verify:
%s
IMPORTANT: Be thorough. Many companies have been acquired in recent years.
Check carefully for any M&A activity, going-private transactions, or delistings.

Return ONLY a JSON array with one object per company (in the same order):
[
  {
    "ticker": "TICK",
    "name": "Company Name",
    "is_publicly_traded": true/false/null,
    "status": "ACTIVE" | "ACQUIRED" | "MERGED" | "DELISTED" | "PRIVATE" | "UNCERTAIN",
    "confidence": "HIGH" | "MEDIUM" | "LOW",
    "reason": "Explanation if not active or uncertain, null if active",
    "acquirer": "Acquirer name and ticker if acquired, null otherwise",
    "date_changed": "YYYY-MM-DD if known, null otherwise",
    "material_changes": "Description of major business changes, null if none"
  }
]

Return ONLY the JSON array.`, list.String())

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("batch verification failed: %w", err)
	}

	var recs []VerificationRecord
	if err := oracle.UnmarshalArray(resp, &recs); err != nil {
		return nil, fmt.Errorf("batch verification parse failed: %w", err)
	}

	for i := range recs {
		if i < len(batch) {
			fillVerificationDefaults(&recs[i], batch[i])
		}
	}
	return recs, nil
}

// AssessModelMatch scores business-model alignment between target and
// comparable. Fully LLM-based, no hardcoded keywords.
func (o *LLMOracle) AssessModelMatch(ctx context.Context, targetModel BusinessModel, targetDescription, compDescription string) (ModelMatch, error) {
	prompt := fmt.Sprintf(`You are an investment analyst comparing business models.

TARGET COMPANY BUSINESS MODEL: %s
TARGET DESCRIPTION: %s

COMPARABLE COMPANY DESCRIPTION: %s

TASK: Assess how well the comparable company's business model aligns with the target.

Consider:
1. Revenue generation mechanism (subscription, transaction, licensing, services, product sales, etc.)
2. Customer relationship model (B2B, B2C, B2B2C, marketplace, etc.)
3. Value delivery method (software, hardware, services, platform, hybrid, etc.)
4. Operational model (asset-light, capital-intensive, recurring vs one-time, etc.)

Return ONLY a JSON object:
{
    "match_score": 0.0-1.0,
    "target_model_type": "Brief description of target's business model",
    "comp_model_type": "Brief description of comparable's business model",
    "explanation": "One sentence explaining the match/mismatch"
}

Score guide:
- 1.0 = Nearly identical business models
- 0.7-0.9 = Same general category with minor differences
- 0.4-0.6 = Related but meaningfully different models
- 0.1-0.3 = Different business models
- 0.0 = Completely unrelated models`, targetModel, truncate(targetDescription, 500), truncate(compDescription, 500))

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return ModelMatch{}, fmt.Errorf("business model assessment failed: %w", err)
	}

	var match ModelMatch
	if err := oracle.UnmarshalObject(resp, &match); err != nil {
		return ModelMatch{}, fmt.Errorf("business model assessment parse failed: %w", err)
	}
	return match, nil
}

// CheckOperating asks whether the candidate is an operating company or
// a non-operating financial structure.
func (o *LLMOracle) CheckOperating(ctx context.Context, c Candidate) (OperatingCheck, error) {
	prompt := fmt.Sprintf(`Analyze whether this is an OPERATING company or a non-operating entity.

Company: %s
Business Description: %s

OPERATING COMPANY = Produces goods or provides services as its primary business
NON-OPERATING ENTITY = Primarily exists to hold investments, assets, or as a financial structure

Examples of NON-OPERATING entities (regardless of industry):
- Holding companies that own subsidiaries but don't operate directly
- Investment trusts or funds
- SPACs (Special Purpose Acquisition Companies)
- Shell companies
- Real estate investment trusts (REITs) that only hold property
- Closed-end funds

Return ONLY a JSON object:
{
    "is_operating": true/false,
    "entity_type": "operating_company" | "holding_company" | "investment_vehicle" | "spac" | "other_non_operating",
    "confidence": "HIGH" | "MEDIUM" | "LOW",
    "explanation": "Brief explanation"
}`, orNA(c.Name), orNA(c.BusinessActivity))

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return OperatingCheck{}, fmt.Errorf("operating check failed: %w", err)
	}

	var check OperatingCheck
	if err := oracle.UnmarshalObject(resp, &check); err != nil {
		return OperatingCheck{}, fmt.Errorf("operating check parse failed: %w", err)
	}
	return check, nil
}

// Normalize rewrites a description into a factual comparable profile.
func (o *LLMOracle) Normalize(ctx context.Context, raw string, profile TargetProfile) (string, error) {
	focus := strings.Join(headTerms(profile.CoreFocusAreas, 5), ", ")

	prompt := fmt.Sprintf(`Rewrite this company description into a factual comparable profile.

RULES:
1. Focus ONLY on PRIMARY revenue-generating activities
2. State industry concentration explicitly
3. Remove marketing language
4. If multi-industry, estimate revenue weighting

Context: focus areas=%s, model=%s, specialization=%.2f

Description: %s

Return ONE paragraph (3-5 sentences) describing actual revenue activities.`,
		focus, profile.BusinessModel, profile.SpecializationLevel, raw)

	resp, err := o.client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("normalization failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

// fillVerificationDefaults backfills identity and conservative defaults
// on a parsed verification record.
func fillVerificationDefaults(rec *VerificationRecord, c Candidate) {
	if rec.Ticker == "" {
		rec.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
	}
	if rec.Name == "" {
		rec.Name = c.Name
	}
	if rec.Exchange == "" {
		rec.Exchange = c.Exchange
	}
	if rec.Status == "" {
		rec.Status = StatusUncertain
	}
	if rec.Confidence == "" {
		rec.Confidence = ConfidenceLow
	}
}

func headTerms(terms []string, n int) []string {
	if len(terms) > n {
		return terms[:n]
	}
	return terms
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
