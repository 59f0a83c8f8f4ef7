package region

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Player One", "player one"},
		{"  player   one  ", "player one"},
		{"Player\nOne\t", "player one"},
		{"", ""},
		{" \n\t ", ""},
		{"ＨＰ　満タン", "ｈｐ 満タン"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvaluate_TargetOnly(t *testing.T) {
	r := New("status", Rect{0, 0, 10, 10}, "ready")

	tests := []struct {
		name    string
		primary string
		want    bool
	}{
		{"exact", "ready", true},
		{"case insensitive", "System Ready.", true},
		{"substring inside negation", "system not ready", true},
		{"absent", "loading", false},
		{"empty", "", false},
		{"blank", "   \n", false},
		{"partial word", "rea", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.primary, &r, ""); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.primary, got, tt.want)
			}
		})
	}
}

func TestEvaluate_EmptyTargetNeverTriggers(t *testing.T) {
	r := New("status", Rect{0, 0, 10, 10}, "")
	if Evaluate("anything at all", &r, "") {
		t.Error("empty target text should never trigger without comparison")
	}
}

func TestEvaluate_ComparisonTriggerOnly(t *testing.T) {
	r := New("players", Rect{0, 0, 10, 10}, "one").WithComparison(Rect{20, 0, 10, 10}, true)

	tests := []struct {
		name       string
		primary    string
		comparison string
		want       bool
	}{
		{"equal ignoring case and spaces", "Player One", "player   one", true},
		{"equal across newline", "Player\nOne", "player one", true},
		{"different", "Player One", "Player Two", false},
		{"target ignored", "Player One", "Other", false},
		{"both empty suppressed", "", "", false},
		{"both blank suppressed", "  ", "\n", false},
		{"empty comparison", "Player One", "", false},
		{"empty primary", "", "Player One", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.primary, &r, tt.comparison); got != tt.want {
				t.Errorf("Evaluate(%q, %q) = %v, want %v", tt.primary, tt.comparison, got, tt.want)
			}
		})
	}
}

func TestDecide_ComparisonWithTargetFallback(t *testing.T) {
	r := New("players", Rect{0, 0, 10, 10}, "ready").WithComparison(Rect{20, 0, 10, 10}, false)

	tests := []struct {
		name       string
		primary    string
		comparison string
		want       Decision
	}{
		{"equal wins", "Ready", "ready", Decision{Triggered: true, Reason: ReasonCompare}},
		{"falls back to target", "Ready now", "waiting", Decision{Triggered: true, Reason: ReasonTarget}},
		{"fallback with empty comparison", "ready", "", Decision{Triggered: true, Reason: ReasonTarget}},
		{"neither", "waiting", "loading", Decision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.primary, &r, tt.comparison); got != tt.want {
				t.Errorf("Decide(%q, %q) = %+v, want %+v", tt.primary, tt.comparison, got, tt.want)
			}
		})
	}
}

func TestDecide_NilRegion(t *testing.T) {
	if got := Decide("ready", nil, ""); got.Triggered {
		t.Error("nil region should not trigger")
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	r := New("players", Rect{0, 0, 10, 10}, "one").WithComparison(Rect{20, 0, 10, 10}, false)
	inputs := [][2]string{{"Player One", "player one"}, {"x", "y"}, {"", ""}, {"one", ""}}

	for _, in := range inputs {
		first := Decide(in[0], &r, in[1])
		second := Decide(in[0], &r, in[1])
		if first != second {
			t.Errorf("Decide(%q, %q) not idempotent: %+v then %+v", in[0], in[1], first, second)
		}
	}
}

func TestMatchReason_String(t *testing.T) {
	tests := []struct {
		reason MatchReason
		want   string
	}{
		{ReasonNone, "none"},
		{ReasonTarget, "target"},
		{ReasonCompare, "compare"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("String() = %v, want %v", got, tt.want)
		}
	}
}
