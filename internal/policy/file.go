package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
	"gopkg.in/yaml.v3"
)

// RuleType names which rule body a FileSpec carries, serving as the
// discriminator for the otherwise-polymorphic Policy.Spec field when a
// policy is read from or written to disk.
type RuleType string

const (
	RuleTypeBudget            RuleType = "budget"
	RuleTypeResourceCount     RuleType = "resource_count"
	RuleTypeEC2Family         RuleType = "ec2_family"
	RuleTypeS3Lifecycle       RuleType = "s3_lifecycle"
	RuleTypeLambdaConcurrency RuleType = "lambda_concurrency"
	RuleTypeDynamoBillingMode RuleType = "dynamo_billing_mode"
	RuleTypeDSL               RuleType = "dsl"
)

// FileSpec is the on-disk shape of one policy: a flat, loader-friendly
// record with exactly one of its rule-body fields populated, selected by
// RuleType. Policy.Spec is typed any because the engine needs a concrete
// Go value per rule kind (BudgetRule, EC2FamilyRule, ...); FileSpec exists
// only to bridge that polymorphism across YAML/JSON, which has no
// native sum-type encoding.
type FileSpec struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string   `yaml:"category" json:"category"`
	Severity    string   `yaml:"severity" json:"severity"`
	Owner       string   `yaml:"owner" json:"owner"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	RuleType RuleType `yaml:"rule_type" json:"rule_type"`

	Budget            *BudgetRule            `yaml:"budget,omitempty" json:"budget,omitempty"`
	ResourceCount     *ResourceCountRule     `yaml:"resource_count,omitempty" json:"resource_count,omitempty"`
	EC2Family         *EC2FamilyRule         `yaml:"ec2_family,omitempty" json:"ec2_family,omitempty"`
	S3Lifecycle       *S3LifecycleRule       `yaml:"s3_lifecycle,omitempty" json:"s3_lifecycle,omitempty"`
	LambdaConcurrency *LambdaConcurrencyRule `yaml:"lambda_concurrency,omitempty" json:"lambda_concurrency,omitempty"`
	DynamoBillingMode *DynamoBillingModeRule `yaml:"dynamo_billing_mode,omitempty" json:"dynamo_billing_mode,omitempty"`
	DSL               *DSLRule               `yaml:"dsl,omitempty" json:"dsl,omitempty"`
}

// FileConfig is the on-disk collection of policy definitions, mirroring
// the shape of internal/baseline.Config and internal/slo.Config.
type FileConfig struct {
	Version  string     `yaml:"version" json:"version"`
	Policies []FileSpec `yaml:"policies" json:"policies"`
}

// categoryKinds maps the string form of each CategoryKind for FileSpec
// round-tripping. CategoryCustom is not listed: any category string missing
// from this map parses as CategoryCustom with that string as its label,
// the inverse of Category.String.
var categoryKinds = map[string]CategoryKind{
	string(CategoryBudget):      CategoryBudget,
	string(CategoryResource):    CategoryResource,
	string(CategorySecurity):    CategorySecurity,
	string(CategoryGovernance):  CategoryGovernance,
	string(CategoryPerformance): CategoryPerformance,
	string(CategorySLO):         CategorySLO,
	string(CategoryEnvironment): CategoryEnvironment,
}

func parseCategory(s string) Category {
	if kind, ok := categoryKinds[s]; ok {
		return Category{Kind: kind}
	}
	return Category{Kind: CategoryCustom, Label: s}
}

// ToPolicy converts a FileSpec into a Draft Policy stamped with now,
// resolving its RuleType into the matching concrete Spec value. An
// unrecognized or mismatched RuleType is reported as an error rather than
// silently producing a ruleless policy the engine would skip.
func (f FileSpec) ToPolicy(now time.Time) (Policy, error) {
	severity, ok := governance.ParseSeverity(f.Severity)
	if !ok {
		return Policy{}, fmt.Errorf("policy %q: unrecognized severity %q", f.ID, f.Severity)
	}

	p := New(f.ID, f.Name, parseCategory(f.Category), severity, f.Owner, now)
	p.Description = f.Description
	for _, t := range f.Tags {
		p.AddTag(t)
	}

	spec, err := f.resolveSpec()
	if err != nil {
		return Policy{}, err
	}
	p.Spec = spec
	return p, nil
}

func (f FileSpec) resolveSpec() (any, error) {
	switch f.RuleType {
	case RuleTypeBudget:
		if f.Budget == nil {
			return nil, fmt.Errorf("policy %q: rule_type budget requires a budget block", f.ID)
		}
		return *f.Budget, nil
	case RuleTypeResourceCount:
		if f.ResourceCount == nil {
			return nil, fmt.Errorf("policy %q: rule_type resource_count requires a resource_count block", f.ID)
		}
		return *f.ResourceCount, nil
	case RuleTypeEC2Family:
		if f.EC2Family == nil {
			return nil, fmt.Errorf("policy %q: rule_type ec2_family requires an ec2_family block", f.ID)
		}
		return *f.EC2Family, nil
	case RuleTypeS3Lifecycle:
		if f.S3Lifecycle == nil {
			return nil, fmt.Errorf("policy %q: rule_type s3_lifecycle requires an s3_lifecycle block", f.ID)
		}
		return *f.S3Lifecycle, nil
	case RuleTypeLambdaConcurrency:
		if f.LambdaConcurrency == nil {
			return nil, fmt.Errorf("policy %q: rule_type lambda_concurrency requires a lambda_concurrency block", f.ID)
		}
		return *f.LambdaConcurrency, nil
	case RuleTypeDynamoBillingMode:
		if f.DynamoBillingMode == nil {
			return nil, fmt.Errorf("policy %q: rule_type dynamo_billing_mode requires a dynamo_billing_mode block", f.ID)
		}
		return *f.DynamoBillingMode, nil
	case RuleTypeDSL:
		if f.DSL == nil {
			return nil, fmt.Errorf("policy %q: rule_type dsl requires a dsl block", f.ID)
		}
		return *f.DSL, nil
	default:
		return nil, fmt.Errorf("policy %q: unrecognized rule_type %q", f.ID, f.RuleType)
	}
}

// FromPolicy converts a Policy back into its on-disk FileSpec form, the
// inverse of ToPolicy. No command in cmd/costpilot calls it.
func FromPolicy(p Policy) (FileSpec, error) {
	f := FileSpec{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category.String(),
		Severity:    p.Severity.String(),
		Owner:       p.Ownership.Owner,
		Tags:        append([]string(nil), p.Tags...),
	}

	switch spec := p.Spec.(type) {
	case BudgetRule:
		f.RuleType, f.Budget = RuleTypeBudget, &spec
	case ResourceCountRule:
		f.RuleType, f.ResourceCount = RuleTypeResourceCount, &spec
	case EC2FamilyRule:
		f.RuleType, f.EC2Family = RuleTypeEC2Family, &spec
	case S3LifecycleRule:
		f.RuleType, f.S3Lifecycle = RuleTypeS3Lifecycle, &spec
	case LambdaConcurrencyRule:
		f.RuleType, f.LambdaConcurrency = RuleTypeLambdaConcurrency, &spec
	case DynamoBillingModeRule:
		f.RuleType, f.DynamoBillingMode = RuleTypeDynamoBillingMode, &spec
	case DSLRule:
		f.RuleType, f.DSL = RuleTypeDSL, &spec
	default:
		return FileSpec{}, fmt.Errorf("policy %q: Spec has no on-disk representation (%T)", p.ID, p.Spec)
	}
	return f, nil
}

// LoadFile reads one YAML policy-definitions file from disk and converts
// every entry to a Policy stamped with now.
func LoadFile(path string, now time.Time) ([]Policy, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, governance.New(governance.KindFileNotFound, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, governance.Wrap(governance.KindIoError, "failed to read policy file", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, governance.Wrap(governance.KindParseError, "failed to parse policy YAML", err)
	}

	policies := make([]Policy, 0, len(cfg.Policies))
	for _, spec := range cfg.Policies {
		p, err := spec.ToPolicy(now)
		if err != nil {
			return nil, governance.Wrap(governance.KindValidationError, "invalid policy definition", err)
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// LoadDir reads every *.yaml/*.yml file directly inside dir (no recursion,
// matching the teacher's policy-directory layout) and returns the union of
// their Policy definitions.
func LoadDir(dir string, now time.Time) ([]Policy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, governance.Wrap(governance.KindIoError, "failed to read policy directory", err)
	}

	var all []Policy
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		policies, err := LoadFile(filepath.Join(dir, entry.Name()), now)
		if err != nil {
			return nil, err
		}
		all = append(all, policies...)
	}
	return all, nil
}
