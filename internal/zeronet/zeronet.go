// Package zeronet provides a zero-sized capability value that asserts the
// code holding it performs no network I/O and no non-deterministic
// operations. The pipeline coordinator holds a Token and calls Validate
// before each evaluation run; no evaluation entry point takes a Token as a
// parameter, and Validate always succeeds.
package zeronet

import "fmt"

// Token is a zero-sized capability. Its presence in a function signature is
// a static assertion: the callee must not perform network I/O. Obtaining
// one is free and requires no arguments, so no network state can be
// smuggled through it.
type Token struct{}

// New returns a zero-network token.
func New() Token {
	return Token{}
}

// Validate always succeeds today; it exists so callers have a single place
// to route a future runtime check without changing call sites.
func (Token) Validate() error {
	return nil
}

// ViolationKind enumerates the ways zero-network evaluation can be broken.
type ViolationKind string

const (
	ViolationNetworkCall        ViolationKind = "network_call_attempted"
	ViolationAPICall            ViolationKind = "api_call_attempted"
	ViolationNonDeterministic   ViolationKind = "non_deterministic_operation"
	ViolationUnsafeFileOp       ViolationKind = "unsafe_file_operation"
)

// Violation reports a broken zero-network guarantee.
type Violation struct {
	Kind   ViolationKind
	Detail string
}

func (v *Violation) Error() string {
	switch v.Kind {
	case ViolationNetworkCall:
		return fmt.Sprintf("network call attempted: %s", v.Detail)
	case ViolationAPICall:
		return fmt.Sprintf("API call attempted: %s", v.Detail)
	case ViolationNonDeterministic:
		return fmt.Sprintf("non-deterministic operation: %s", v.Detail)
	case ViolationUnsafeFileOp:
		return fmt.Sprintf("unsafe file operation: %s", v.Detail)
	default:
		return fmt.Sprintf("zero-network violation: %s", v.Detail)
	}
}

// NetworkCall constructs a ViolationNetworkCall error.
func NetworkCall(operation string) *Violation {
	return &Violation{Kind: ViolationNetworkCall, Detail: operation}
}

// APICall constructs a ViolationAPICall error.
func APICall(endpoint string) *Violation {
	return &Violation{Kind: ViolationAPICall, Detail: endpoint}
}

// NonDeterministic constructs a ViolationNonDeterministic error.
func NonDeterministic(description string) *Violation {
	return &Violation{Kind: ViolationNonDeterministic, Detail: description}
}

// UnsafeFileOp constructs a ViolationUnsafeFileOp error.
func UnsafeFileOp(path string) *Violation {
	return &Violation{Kind: ViolationUnsafeFileOp, Detail: path}
}

// disallowedDependencies lists network-capable package names that must
// never appear in an import graph reachable from the governance core. It is
// a static artifact consumed by review/build tooling, not a runtime check.
var disallowedDependencies = []string{
	"net/http",
	"net/rpc",
	"google.golang.org/grpc",
	"github.com/aws/aws-sdk-go",
	"github.com/aws/aws-sdk-go-v2",
	"cloud.google.com/go",
	"github.com/Azure/azure-sdk-for-go",
	"github.com/gorilla/websocket",
}

// nonDeterministicOperations lists operation names review tooling should
// flag if they appear inside the evaluation core. The clock itself is
// exempt: it is an injected dependency, not a forbidden call.
var nonDeterministicOperations = []string{
	"math/rand",
	"crypto/rand",
	"time.Now",
	"time.Sleep",
}

// IsAllowedDependency reports whether a package import path is permitted in
// the zero-network evaluation path.
func IsAllowedDependency(importPath string) bool {
	for _, d := range disallowedDependencies {
		if importPath == d || hasPrefix(importPath, d+"/") {
			return false
		}
	}
	return true
}

// EnsureDeterministic returns a NonDeterministic violation if operation
// names a known non-deterministic call.
func EnsureDeterministic(operation string) error {
	for _, nd := range nonDeterministicOperations {
		if operation == nd || hasPrefix(operation, nd) {
			return NonDeterministic(operation)
		}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
