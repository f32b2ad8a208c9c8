package zeronet

import "testing"

func TestTokenValidate(t *testing.T) {
	tok := New()
	if err := tok.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestIsAllowedDependency(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"gopkg.in/yaml.v3", true},
		{"github.com/google/cel-go", true},
		{"net/http", false},
		{"github.com/aws/aws-sdk-go-v2/service/s3", false},
		{"google.golang.org/grpc", false},
	}
	for _, tt := range tests {
		if got := IsAllowedDependency(tt.path); got != tt.want {
			t.Errorf("IsAllowedDependency(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEnsureDeterministic(t *testing.T) {
	if err := EnsureDeterministic("costpilot/internal/policy.Evaluate"); err != nil {
		t.Errorf("unexpected violation: %v", err)
	}
	if err := EnsureDeterministic("time.Now"); err == nil {
		t.Error("expected violation for time.Now")
	}
	var v *Violation
	err := EnsureDeterministic("math/rand")
	if err == nil {
		t.Fatal("expected violation for math/rand")
	}
	v = err.(*Violation)
	if v.Kind != ViolationNonDeterministic {
		t.Errorf("Kind = %v, want %v", v.Kind, ViolationNonDeterministic)
	}
}

func TestViolationError(t *testing.T) {
	err := NetworkCall("HTTP GET")
	if err.Error() != "network call attempted: HTTP GET" {
		t.Errorf("Error() = %q", err.Error())
	}
	apiErr := APICall("https://api.example.com/pricing")
	if got := apiErr.Error(); got == "" {
		t.Error("expected non-empty error string")
	}
}
