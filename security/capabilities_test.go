package security

import (
	"strings"
	"testing"
)

func TestImpliesCapability(t *testing.T) {
	tests := []struct {
		name     string
		granted  Capability
		required Capability
		want     bool
	}{
		{"same capability", CapabilityUI, CapabilityUI, true},
		{"parent implies child", CapabilityEditor, CapabilityUI, true},
		{"parent implies settings child", CapabilityEditor, CapabilitySettings, true},
		{"child does not imply parent", CapabilityUI, CapabilityEditor, false},
		{"siblings are independent", CapabilityFileRead, CapabilityFileWrite, false},
		{"unsafe implies editor", CapabilityUnsafe, CapabilityEditor, true},
		{"unsafe implies file write", CapabilityUnsafe, CapabilityFileWrite, true},
		{"editor does not imply filesystem", CapabilityEditor, CapabilityFileRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImpliesCapability(tt.granted, tt.required); got != tt.want {
				t.Errorf("ImpliesCapability(%q, %q) = %v, want %v", tt.granted, tt.required, got, tt.want)
			}
		})
	}
}

func TestIsChildOf(t *testing.T) {
	if !IsChildOf(CapabilityUI, CapabilityEditor) {
		t.Error("editor.ui should be a child of editor")
	}
	if IsChildOf(CapabilityEditor, CapabilityUI) {
		t.Error("editor should not be a child of editor.ui")
	}
	if IsChildOf(Capability("editorx"), CapabilityEditor) {
		t.Error("editorx should not be a child of editor")
	}
}

func TestIsValidCapability(t *testing.T) {
	for _, cap := range AllCapabilities() {
		if !IsValidCapability(cap) {
			t.Errorf("IsValidCapability(%q) = false for registered capability", cap)
		}
	}
	if IsValidCapability("editor.nonexistent") {
		t.Error("IsValidCapability accepted an unknown capability")
	}
}

func TestGetCapabilityInfo(t *testing.T) {
	info, ok := GetCapabilityInfo(CapabilityUI)
	if !ok {
		t.Fatal("GetCapabilityInfo(editor.ui) not found")
	}
	if info.Parent != CapabilityEditor {
		t.Errorf("Parent = %q, want %q", info.Parent, CapabilityEditor)
	}
	if info.RiskLevel != RiskLow {
		t.Errorf("RiskLevel = %v, want %v", info.RiskLevel, RiskLow)
	}
}

func TestHighRiskCapabilities(t *testing.T) {
	found := false
	for _, cap := range HighRiskCapabilities() {
		if cap == CapabilityUnsafe {
			found = true
		}
	}
	if !found {
		t.Error("HighRiskCapabilities() missing unsafe")
	}
}

func TestRiskLevelString(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  string
	}{
		{RiskLow, "low"},
		{RiskMedium, "medium"},
		{RiskHigh, "high"},
		{RiskCritical, "critical"},
		{RiskLevel(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("RiskLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestCapabilityError(t *testing.T) {
	err := NewCapabilityError(CapabilityFileWrite, "write file", "not granted")
	msg := err.Error()
	if !strings.Contains(msg, "filesystem.write") || !strings.Contains(msg, "write file") {
		t.Errorf("Error() = %q, want capability and operation named", msg)
	}

	bare := NewCapabilityError(CapabilityUI, "", "not granted")
	if !strings.Contains(bare.Error(), "editor.ui") {
		t.Errorf("Error() = %q, want capability named", bare.Error())
	}
}
