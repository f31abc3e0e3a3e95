package main

import (
	"testing"

	"github.com/gogpu/isosurface"
)

func TestParseCoord(t *testing.T) {
	c, err := parseCoord("3, 1,2")
	if err != nil {
		t.Fatal(err)
	}
	if c != isosurface.C(3, 1, 2) {
		t.Errorf("parseCoord = %v", c)
	}
	for _, bad := range []string{"", "1,2", "a,b,c", "1,2,3,4"} {
		if _, err := parseCoord(bad); err == nil {
			t.Errorf("parseCoord(%q) succeeded", bad)
		}
	}
}

func TestParseCurve(t *testing.T) {
	tests := []struct {
		in   string
		at   float32
		want float32
	}{
		{"0.5", 0.3, 0.5},
		{"-1:1", 0.5, 0},
		{"0:0,1:2", 0.25, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := parseCurve(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := c.Evaluate(tt.at); got != tt.want {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
	if _, err := parseCurve("0:0,x"); err == nil {
		t.Error("bad keyframe accepted")
	}
}

func TestParseLifecycle(t *testing.T) {
	if lc, err := parseLifecycle("Continuous"); err != nil || lc != isosurface.LifecycleContinuous {
		t.Errorf("parseLifecycle(Continuous) = %v, %v", lc, err)
	}
	if lc, err := parseLifecycle("one-shot"); err != nil || lc != isosurface.LifecycleOneShot {
		t.Errorf("parseLifecycle(one-shot) = %v, %v", lc, err)
	}
	if _, err := parseLifecycle("sometimes"); err == nil {
		t.Error("unknown lifecycle accepted")
	}
}

func TestNewField(t *testing.T) {
	for _, name := range []string{"sphere", "plane", "terrain"} {
		if _, err := newField(name, 1, 1); err != nil {
			t.Errorf("newField(%q): %v", name, err)
		}
	}
	if _, err := newField("cube", 1, 1); err == nil {
		t.Error("unknown field accepted")
	}
}
