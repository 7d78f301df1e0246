package models

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFlag_JSON(t *testing.T) {
	cases := map[string]Flag{
		`{"followUp":true}`:        true,
		`{"followUp":false}`:       false,
		`{"followUp":"FOLLOW_UP"}`: true,
		`{"followUp":""}`:          false,
		`{"followUp":null}`:        false,
		`{}`:                       false,
	}
	for in, want := range cases {
		var info PackageInfo
		if err := json.Unmarshal([]byte(in), &info); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if info.FollowUp != want {
			t.Errorf("%s: followUp = %v, want %v", in, info.FollowUp, want)
		}
	}
	var info PackageInfo
	if err := json.Unmarshal([]byte(`{"followUp":3}`), &info); err == nil {
		t.Error("expected error for numeric flag")
	}
}

func TestFlag_YAML(t *testing.T) {
	cases := map[string]Flag{
		"followUp: true":      true,
		"followUp: FOLLOW_UP": true,
		"followUp: false":     false,
		"followUp: ~":         false,
	}
	for in, want := range cases {
		var info PackageInfo
		if err := yaml.Unmarshal([]byte(in), &info); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if info.FollowUp != want {
			t.Errorf("%s: followUp = %v, want %v", in, info.FollowUp, want)
		}
	}
}

func TestCriticalitySeverity(t *testing.T) {
	if !(CriticalityHigh.Severity() > CriticalityMedium.Severity() && CriticalityMedium.Severity() > CriticalityNone.Severity()) {
		t.Error("severity order broken")
	}
}
