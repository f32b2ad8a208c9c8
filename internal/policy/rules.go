package policy

import "github.com/costpilot/costpilot/internal/dsl"

// BudgetRule caps monthly spend for the whole estate or one module.
// Grounded on original_source's policy_types.rs BudgetLimit/ModuleBudget.
type BudgetRule struct {
	// Scope is empty for the global budget, or a "module.<name>" prefix
	// for a per-module budget.
	Scope            string  `yaml:"scope,omitempty" json:"scope,omitempty"`
	MonthlyLimit     float64 `yaml:"monthly_limit" json:"monthly_limit"`
	WarningThreshold float64 `yaml:"warning_threshold,omitempty" json:"warning_threshold,omitempty"` // fraction of MonthlyLimit, e.g. 0.8
}

// warningThreshold returns the configured threshold, defaulting to 0.8.
func (b BudgetRule) warningThreshold() float64 {
	if b.WarningThreshold <= 0 || b.WarningThreshold > 1 {
		return 0.8
	}
	return b.WarningThreshold
}

// ResourceCountRule caps how many live (non-deleted) resources of a given
// Terraform resource type may exist, e.g. "aws_nat_gateway" <= 2.
type ResourceCountRule struct {
	ResourceType string `yaml:"resource_type" json:"resource_type"`
	MaxCount     int    `yaml:"max_count" json:"max_count"`
}

// EC2FamilyRule restricts the allowed EC2 instance families and/or the
// largest permitted instance size.
type EC2FamilyRule struct {
	AllowedFamilies []string `yaml:"allowed_families,omitempty" json:"allowed_families,omitempty"` // e.g. ["t3", "m5"]; empty means unrestricted
	MaxSize         string   `yaml:"max_size,omitempty" json:"max_size,omitempty"`                 // e.g. "xlarge"; empty means unrestricted
}

var ec2SizeOrder = []string{
	"nano", "micro", "small", "medium", "large",
	"xlarge", "2xlarge", "4xlarge", "8xlarge", "16xlarge", "24xlarge", "32xlarge",
}

// exceedsSize reports whether size is strictly larger than maxSize in the
// canonical EC2 size ordering. Sizes not present in the table never
// compare as exceeding, matching original_source's exceeds_size_limit.
func exceedsSize(size, maxSize string) bool {
	sizeIdx, maxIdx := -1, -1
	for i, s := range ec2SizeOrder {
		if s == size {
			sizeIdx = i
		}
		if s == maxSize {
			maxIdx = i
		}
	}
	if sizeIdx == -1 || maxIdx == -1 {
		return false
	}
	return sizeIdx > maxIdx
}

// S3LifecycleRule requires every S3 bucket carry at least one lifecycle
// rule in its configuration.
type S3LifecycleRule struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LambdaConcurrencyRule requires every Lambda function set a reserved
// concurrency limit.
type LambdaConcurrencyRule struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DynamoBillingModeRule flags on-demand (PAY_PER_REQUEST) DynamoDB tables
// when the estate prefers provisioned capacity.
type DynamoBillingModeRule struct {
	PreferProvisioned bool `yaml:"prefer_provisioned" json:"prefer_provisioned"`
}

// DSLRule wraps one dsl.Rule for the rule types above that can't express
// cross-field or arithmetic conditions, e.g. "block any create where
// resource_type == aws_instance AND cost_increase_percent > 50".
type DSLRule struct {
	Rule dsl.Rule `yaml:"rule" json:"rule"`
}
