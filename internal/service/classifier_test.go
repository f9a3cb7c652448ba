package service

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

func TestClassifier_Normalizes(t *testing.T) {
	tests := []struct {
		raw  string
		want workflow.Route
	}{
		{"order", workflow.RouteOrder},
		{"  Refund\n", workflow.RouteRefund},
		{"SECURITY", workflow.RouteSecurity},
		{"Refund.", workflow.RouteOrder},
		{`"security"`, workflow.RouteOrder},
		{"billing", workflow.RouteOrder},
		{"refund please", workflow.RouteOrder},
		{"", workflow.RouteOrder},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c := NewClassifier(&scriptedCompleter{classify: classifyAs(tt.raw)})
			got, err := c.Classify(context.Background(), "hello")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"refund", 64, "refund"},
		{"abcdef", 3, "abc..."},
		{"caf\u00e9!", 4, "caf..."},
		{"\U0001F4E6 box", 2, "..."},
		{"\U0001F4E6 box", 4, "\U0001F4E6..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}

func TestClassifier_SendsTriagePrompt(t *testing.T) {
	llm := &scriptedCompleter{}
	_, _ = NewClassifier(llm).Classify(context.Background(), "Where is my order?")
	if len(llm.classifyCalls) != 1 {
		t.Fatalf("expected 1 classify call, got %d", len(llm.classifyCalls))
	}
	if llm.classifyCalls[0].System != triagePrompt || llm.classifyCalls[0].User != "Where is my order?" {
		t.Errorf("unexpected call %+v", llm.classifyCalls[0])
	}
}

func TestClassifier_ErrorIsNotDefaulted(t *testing.T) {
	boom := errors.New("llm down")
	c := NewClassifier(&scriptedCompleter{classify: func(string, string) (string, error) { return "", boom }})
	route, err := c.Classify(context.Background(), "hello")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped llm error, got %v", err)
	}
	if route != "" {
		t.Errorf("expected no route on failure, got %q", route)
	}
}
