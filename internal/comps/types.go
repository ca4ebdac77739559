// Package comps implements the comparable-company discovery pipeline:
// target analysis, candidate generation, public-status validation,
// description normalization, similarity scoring, and threshold-based
// selection with adaptive retry.
package comps

import (
	"time"
)

// Target describes the (typically private) company to find comparables for.
type Target struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HomepageURL string `json:"homepage_url,omitempty"`
	PrimarySIC  string `json:"primary_sic,omitempty"`
}

// BusinessModel categorizes how a company generates revenue.
type BusinessModel string

const (
	ModelConsulting      BusinessModel = "consulting"
	ModelSoftwareVendor  BusinessModel = "software_vendor"
	ModelManagedServices BusinessModel = "managed_services"
	ModelHardware        BusinessModel = "hardware"
	ModelPlatform        BusinessModel = "platform"
	ModelHybrid          BusinessModel = "hybrid"
	ModelOther           BusinessModel = "other"
)

// ExclusionCriteria describes company types the analysis flagged as
// non-comparable for this target.
type ExclusionCriteria struct {
	AvoidCompanyTypes    []string `json:"avoid_company_types"`
	AvoidCharacteristics []string `json:"avoid_characteristics"`
}

// TargetProfile is the structured analysis of a target company.
// Computed once per search and immutable thereafter.
type TargetProfile struct {
	// SpecializationLevel ranges 0.0 (diversified) to 1.0 (narrow niche).
	SpecializationLevel float64 `json:"specialization_level"`

	// CoreFocusAreas holds 3-7 key terms describing the business.
	CoreFocusAreas []string `json:"core_focus_areas"`

	BusinessModel      BusinessModel     `json:"business_model"`
	KeyDifferentiators []string          `json:"key_differentiators"`
	ExclusionCriteria  ExclusionCriteria `json:"exclusion_criteria"`

	// IdealComparableProfile is a one-sentence description of the
	// ideal comparable company.
	IdealComparableProfile string `json:"ideal_comparable_profile,omitempty"`
}

// DefaultProfile is the safe fallback when target analysis fails.
// A mid-range specialization keeps both the scoring weights and the
// threshold ladder in their lenient configuration.
func DefaultProfile() TargetProfile {
	return TargetProfile{
		SpecializationLevel: 0.5,
		CoreFocusAreas:      []string{},
		BusinessModel:       ModelOther,
		KeyDifferentiators:  []string{},
	}
}

// Candidate is a raw generated company suggestion. Ephemeral; it lives
// only within one generation attempt.
type Candidate struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	Exchange         string `json:"exchange"`
	Ticker           string `json:"ticker"`
	BusinessActivity string `json:"business_activity"`
	CustomerSegment  string `json:"customer_segment"`
	SICIndustry      string `json:"SIC_industry"`

	// Supporting notes from generation, kept for explainability.
	RevenueFocusExplanation string `json:"revenue_focus_explanation,omitempty"`
	TradingStatusNote       string `json:"trading_status_note,omitempty"`
}

// TradingStatus is the verified public-trading state of a candidate.
type TradingStatus string

const (
	StatusActive    TradingStatus = "ACTIVE"
	StatusAcquired  TradingStatus = "ACQUIRED"
	StatusMerged    TradingStatus = "MERGED"
	StatusDelisted  TradingStatus = "DELISTED"
	StatusPrivate   TradingStatus = "PRIVATE"
	StatusUncertain TradingStatus = "UNCERTAIN"

	// Pre-verification rejection statuses.
	StatusDataInvalid  TradingStatus = "DATA_INVALID"
	StatusNonOperating TradingStatus = "NON_OPERATING"
)

// Confidence grades how sure the oracle is about a verification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// VerificationRecord is the outcome of a public-status check, cached by
// ticker+exchange. IsPubliclyTraded is tri-state: nil means unknown.
type VerificationRecord struct {
	Ticker           string        `json:"ticker"`
	Name             string        `json:"name"`
	Exchange         string        `json:"exchange"`
	IsPubliclyTraded *bool         `json:"is_publicly_traded"`
	Status           TradingStatus `json:"status"`
	Confidence       Confidence    `json:"confidence"`
	Reason           string        `json:"reason,omitempty"`
	Acquirer         string        `json:"acquirer,omitempty"`
	DateChanged      string        `json:"date_changed,omitempty"`
	MaterialChanges  string        `json:"material_changes,omitempty"`
}

// Financials holds enrichment data attached to a comparable.
type Financials struct {
	MarketCap float64 `json:"market_cap"`
	Revenue   float64 `json:"revenue,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

// Comparable is a candidate that survived all filters, with its
// normalized description, score, and explainability breakdown.
type Comparable struct {
	Candidate

	NormalizedDescription string            `json:"normalized_description"`
	Score                 float64           `json:"validation_score"`
	Breakdown             map[string]string `json:"score_breakdown"`

	// Caveat notes a material business change on an otherwise active
	// company. Non-fatal, but it costs 0.5 in scoring.
	Caveat string `json:"caveat,omitempty"`

	// NeedsVerification marks a likely-active company whose status
	// could not be confirmed with high confidence.
	NeedsVerification bool   `json:"needs_verification,omitempty"`
	VerificationNote  string `json:"verification_note,omitempty"`

	Financials *Financials `json:"financials,omitempty"`
}

// Rejection records why a candidate was dropped. Accumulated across all
// attempts of a search and never discarded.
type Rejection struct {
	Candidate  `json:"company"`
	Status     TradingStatus `json:"status"`
	Reason     string        `json:"reason"`
	Acquirer   string        `json:"acquirer,omitempty"`
	Date       string        `json:"date,omitempty"`
	Confidence Confidence    `json:"confidence,omitempty"`
}

// SearchMetadata describes one pipeline run.
type SearchMetadata struct {
	SearchID         string        `json:"search_id"`
	TargetName       string        `json:"target"`
	Timestamp        time.Time     `json:"timestamp"`
	Profile          TargetProfile `json:"analysis"`
	Attempts         int           `json:"attempts"`
	Rejected         []Rejection   `json:"rejected_companies"`
	ValidationMethod string        `json:"validation_method"`
}

// SearchResult is the pipeline output: ranked comparables plus metadata.
type SearchResult struct {
	Comparables []Comparable   `json:"comparables"`
	Metadata    SearchMetadata `json:"metadata"`
}
