package domain

// Analysis is the per-agent report produced by the analyze phase.
// Concrete variants embed AnalysisBase; Kind tags the variant.
type Analysis interface {
	Kind() AgentType
	Base() *AnalysisBase
}

// AnalysisBase holds the fields every analysis variant shares.
type AnalysisBase struct {
	Bottlenecks   []string `json:"bottlenecks"`
	Opportunities []string `json:"opportunities"`
}

// Base returns the shared portion of the analysis.
func (b *AnalysisBase) Base() *AnalysisBase { return b }

// ICPPerformanceAnalysis is produced by the prospect-qualification optimizer.
type ICPPerformanceAnalysis struct {
	AnalysisBase
	QualificationAccuracy float64 `json:"qualificationAccuracy"`
	LeadScoringPrecision  float64 `json:"leadScoringPrecision"`
	ICPMatchRate          float64 `json:"icpMatchRate"`
	ConversionRate        float64 `json:"conversionRate"`
	QualificationTime     float64 `json:"qualificationTime"` // minutes
}

func (*ICPPerformanceAnalysis) Kind() AgentType { return AgentProspectQualification }

// DealValuePerformanceAnalysis is produced by the deal-value optimizer.
type DealValuePerformanceAnalysis struct {
	AnalysisBase
	ValueRealizationRate       float64 `json:"valueRealizationRate"`
	ROIConfidence              float64 `json:"roiConfidence"`
	StakeholderAlignment       float64 `json:"stakeholderAlignment"`
	BusinessCaseGenerationTime float64 `json:"businessCaseGenerationTime"` // seconds
}

func (*DealValuePerformanceAnalysis) Kind() AgentType { return AgentDealValue }

// SalesMaterialsPerformanceAnalysis is produced by the sales-materials optimizer.
type SalesMaterialsPerformanceAnalysis struct {
	AnalysisBase
	ContentEngagement     float64 `json:"contentEngagement"`
	PersonalizationScore  float64 `json:"personalizationScore"`
	MaterialEffectiveness float64 `json:"materialEffectiveness"`
	CreationTime          float64 `json:"creationTime"` // minutes
}

func (*SalesMaterialsPerformanceAnalysis) Kind() AgentType { return AgentSalesMaterials }

// Level is an ordinal impact or effort rating.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Weight maps a level to 1, 2 or 3. Unknown levels weigh as medium.
func (l Level) Weight() int {
	switch l {
	case LevelLow:
		return 1
	case LevelHigh:
		return 3
	default:
		return 2
	}
}

// OptimizationType is the closed set of recommendation categories.
type OptimizationType string

const (
	OptimizationProcess         OptimizationType = "process"
	OptimizationAutomation      OptimizationType = "automation"
	OptimizationScoringModel    OptimizationType = "scoring-model"
	OptimizationDataQuality     OptimizationType = "data-quality"
	OptimizationAlignment       OptimizationType = "alignment"
	OptimizationContent         OptimizationType = "content"
	OptimizationPersonalization OptimizationType = "personalization"
	OptimizationIndex           OptimizationType = "index"
	OptimizationSecurity        OptimizationType = "security"
	OptimizationRetention       OptimizationType = "retention"
)

// TargetAll marks a recommendation that applies to every stakeholder or format.
const TargetAll = "all"

// Optimization is a generated, prioritized recommendation.
type Optimization struct {
	ID             string           `json:"id"`
	Type           OptimizationType `json:"type"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Impact         Level            `json:"impact"`
	Effort         Level            `json:"effort"`
	Implementation []string         `json:"implementation"`
	Target         string           `json:"target,omitempty"`
}

// AppliedOptimization records the simulated outcome for one recommendation.
type AppliedOptimization struct {
	ID      string `json:"id"`
	Target  string `json:"target,omitempty"`
	Success bool   `json:"success"`
}

// ApplyResults aggregates the apply phase.
type ApplyResults struct {
	Applied        int                   `json:"applied"`
	Failed         int                   `json:"failed"`
	ImpactByTarget map[string]int        `json:"impactByTarget"`
	Details        []AppliedOptimization `json:"details"`
}
