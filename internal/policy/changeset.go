package policy

import "strings"

// ChangeAction is the kind of infrastructure change a ResourceChange
// describes, mirroring a Terraform-style plan action.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ResourceChange is one planned infrastructure change, as produced by the
// Pipeline Coordinator's upstream plan parser. NewConfig/OldConfig are
// generic attribute maps (decoded JSON/HCL), matched by the resource-rule
// evaluators with plain map lookups.
type ResourceChange struct {
	ResourceID   string         `json:"resource_id"`
	ResourceType string         `json:"resource_type"`
	Action       ChangeAction   `json:"action"`
	OldConfig    map[string]any `json:"old_config,omitempty"`
	NewConfig    map[string]any `json:"new_config,omitempty"`
}

// ChangeSet is the full set of planned changes for one evaluation run.
type ChangeSet struct {
	Changes []ResourceChange `json:"changes"`
}

// RegressionType labels why a baseline-linked cost increase happened, for
// reporting alongside a baseline.Violation.
type RegressionType string

const (
	RegressionProvisioning  RegressionType = "provisioning"
	RegressionScaling       RegressionType = "scaling"
	RegressionConfiguration RegressionType = "configuration"
	RegressionIndirectCost  RegressionType = "indirect_cost"
)

var scalingFields = map[string]bool{
	"instance_count":   true,
	"desired_capacity": true,
	"replicas":         true,
	"node_count":       true,
}

var configurationFields = map[string]bool{
	"billing_mode":   true,
	"instance_type":  true,
	"engine_version": true,
	"storage_type":   true,
}

// ClassifyRegression labels a single resource change for a baseline
// violation report: any Create is Provisioning; an Update touching a
// capacity field is Scaling; an Update touching a pricing-shape field is
// Configuration; anything else is IndirectCost.
func ClassifyRegression(c ResourceChange) RegressionType {
	if c.Action == ActionCreate {
		return RegressionProvisioning
	}
	if c.Action == ActionUpdate {
		if changedAny(c, scalingFields) {
			return RegressionScaling
		}
		if changedAny(c, configurationFields) {
			return RegressionConfiguration
		}
	}
	return RegressionIndirectCost
}

func changedAny(c ResourceChange, fields map[string]bool) bool {
	for field := range fields {
		oldVal, hasOld := valueAt(c.OldConfig, field)
		newVal, hasNew := valueAt(c.NewConfig, field)
		if hasOld != hasNew {
			return true
		}
		if hasOld && hasNew && oldVal != newVal {
			return true
		}
	}
	return false
}

func valueAt(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// ModuleOf attributes a resource identifier to its owning module:
// "module.<name>.<rest>" attributes to "module.<name>"; anything else
// attributes to "root".
func ModuleOf(resourceID string) string {
	if !strings.HasPrefix(resourceID, "module.") {
		return "root"
	}
	rest := resourceID[len("module."):]
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		return "module." + rest[:i]
	}
	return "module." + rest
}

// ResourceFamily returns the prefix before the first '.' of an instance
// type string, e.g. "t3" from "t3.xlarge".
func ResourceFamily(instanceType string) string {
	if i := strings.IndexByte(instanceType, '.'); i >= 0 {
		return instanceType[:i]
	}
	return instanceType
}

// ResourceSize returns the portion after the first '.' of an instance
// type string, e.g. "xlarge" from "t3.xlarge".
func ResourceSize(instanceType string) string {
	if i := strings.IndexByte(instanceType, '.'); i >= 0 {
		return instanceType[i+1:]
	}
	return ""
}
