package condition

import (
	"testing"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]int{
		"momentum":    3,
		"allies":      0,
		"credibility": -1,
	}

	tests := []struct {
		name       string
		expression string
		want       bool
		wantErr    bool
	}{
		{
			name:       "greater or equal true",
			expression: "momentum >= 3",
			want:       true,
		},
		{
			name:       "greater or equal false",
			expression: "momentum >= 4",
			want:       false,
		},
		{
			name:       "equality on zero",
			expression: "allies == 0",
			want:       true,
		},
		{
			name:       "negative value comparison",
			expression: "credibility < 0",
			want:       true,
		},
		{
			name:       "conjunction",
			expression: "momentum >= 2 && allies == 0",
			want:       true,
		},
		{
			name:       "disjunction short circuits",
			expression: "allies > 5 || momentum > 1",
			want:       true,
		},
		{
			name:       "arithmetic in expression",
			expression: "momentum + credibility >= 2",
			want:       true,
		},
		{
			name:       "unknown variable",
			expression: "reputation > 1",
			wantErr:    true,
		},
		{
			name:       "empty expression",
			expression: "",
			wantErr:    true,
		},
		{
			name:       "whitespace only expression",
			expression: "   ",
			wantErr:    true,
		},
		{
			name:       "not a boolean result",
			expression: "momentum + 1",
			wantErr:    true,
		},
		{
			name:       "syntax error",
			expression: "momentum >==< 2",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expression, vars)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Evaluate(%q) expected error, got %v", tt.expression, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate(%q) unexpected error: %v", tt.expression, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expression, got, tt.want)
			}
		})
	}
}

func TestEvaluateDoesNotMutateVars(t *testing.T) {
	vars := map[string]int{"momentum": 2}

	if _, err := Evaluate("momentum > 1", vars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vars["momentum"] != 2 || len(vars) != 1 {
		t.Errorf("variable store was mutated: %v", vars)
	}
}
