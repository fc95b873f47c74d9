package core

import "testing"

func TestAnchorID(t *testing.T) {
	if got := AnchorID(0, 0); got != "u:0,v:0" {
		t.Fatalf("AnchorID(0,0) = %q, want u:0,v:0", got)
	}
	if got := AnchorID(-2, 3); got != "u:-2,v:3" {
		t.Fatalf("AnchorID(-2,3) = %q, want u:-2,v:3", got)
	}
}

func TestAnchorOverlaps(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Anchor
		overlaps bool
	}{
		{"identical", Anchor{X: 10, Y: 10}, Anchor{X: 10, Y: 10}, true},
		{"adjacent within 2", Anchor{X: 10, Y: 10}, Anchor{X: 12, Y: 10}, true},
		{"just outside x", Anchor{X: 10, Y: 10}, Anchor{X: 13, Y: 10}, false},
		{"just outside y", Anchor{X: 10, Y: 10}, Anchor{X: 10, Y: 13}, false},
		{"diagonal within 2", Anchor{X: 10, Y: 10}, Anchor{X: 12, Y: 12}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Overlaps(c.b); got != c.overlaps {
				t.Errorf("Overlaps() = %v, want %v", got, c.overlaps)
			}
			if got := c.b.Overlaps(c.a); got != c.overlaps {
				t.Errorf("Overlaps() not symmetric: got %v, want %v", got, c.overlaps)
			}
		})
	}
}

func TestAnchorCloneIsIndependent(t *testing.T) {
	a := Anchor{ID: "u:0,v:0", Dependents: []string{"u:1,v:0"}}
	cp := a.Clone()
	cp.Dependents[0] = "mutated"
	if a.Dependents[0] != "u:1,v:0" {
		t.Fatalf("Clone did not deep-copy Dependents slice")
	}
}

func TestEscalateModelVariant(t *testing.T) {
	cases := []struct {
		in, want ModelVariant
	}{
		{ModelStandard, ModelPro},
		{ModelPro, ModelFlashPreview},
		{ModelFlashPreview, ModelPro},
	}
	for _, c := range cases {
		if got := EscalateModelVariant(c.in); got != c.want {
			t.Errorf("EscalateModelVariant(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []AnchorStatus{AnchorSuccess, AnchorFailed, AnchorBlocked} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	for _, s := range []AnchorStatus{AnchorPending, AnchorRunning} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}
