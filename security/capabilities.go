// Package security provides the capability model that gates what loaded
// extensions may touch.
package security

import (
	"fmt"
	"strings"
)

// Capability represents a permission an extension can request.
// Capabilities are hierarchical: granting a parent implicitly grants
// every child capability, and granting unsafe grants everything.
type Capability string

// Core capabilities extensions can request.
const (
	// CapabilityEditor grants access to the host editor surface.
	CapabilityEditor Capability = "editor"

	// CapabilityUI grants notification, input, and selection UI access.
	CapabilityUI Capability = "editor.ui"

	// CapabilityCommand grants command registration and execution.
	CapabilityCommand Capability = "editor.command"

	// CapabilityWorkspace grants workspace path and document access.
	CapabilityWorkspace Capability = "editor.workspace"

	// CapabilitySettings grants settings read, write, and watch access.
	CapabilitySettings Capability = "editor.settings"

	// CapabilityFileRead allows reading files from the filesystem.
	CapabilityFileRead Capability = "filesystem.read"

	// CapabilityFileWrite allows writing files to the filesystem.
	CapabilityFileWrite Capability = "filesystem.write"

	// CapabilityProcess allows spawning child processes.
	CapabilityProcess Capability = "process.spawn"

	// CapabilityNetwork allows outbound network access.
	CapabilityNetwork Capability = "network"

	// CapabilityClipboard allows reading and writing the clipboard.
	CapabilityClipboard Capability = "clipboard"

	// CapabilityUnsafe grants full Lua stdlib access (debug, io, os).
	// This is a dangerous capability and should be granted sparingly.
	CapabilityUnsafe Capability = "unsafe"
)

// RiskLevel indicates the security risk of a capability.
type RiskLevel int

const (
	// RiskLow indicates minimal security risk.
	RiskLow RiskLevel = iota

	// RiskMedium indicates moderate security risk.
	RiskMedium

	// RiskHigh indicates significant security risk.
	RiskHigh

	// RiskCritical indicates maximum security risk.
	RiskCritical
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CapabilityInfo provides metadata about a capability.
type CapabilityInfo struct {
	// Name is the capability identifier.
	Name Capability

	// DisplayName is a human-readable name.
	DisplayName string

	// Description explains what the capability allows.
	Description string

	// Parent is the parent capability for hierarchical capabilities.
	Parent Capability

	// RiskLevel indicates how dangerous this capability is.
	RiskLevel RiskLevel

	// RequiresUserApproval indicates if the user must explicitly approve.
	RequiresUserApproval bool
}

// capabilityRegistry holds metadata about all known capabilities.
var capabilityRegistry = map[Capability]CapabilityInfo{
	CapabilityEditor: {
		Name:        CapabilityEditor,
		DisplayName: "Editor Access",
		Description: "Read editor text, cursor, and selection state",
		RiskLevel:   RiskLow,
	},
	CapabilityUI: {
		Name:        CapabilityUI,
		DisplayName: "UI Access",
		Description: "Show notifications, prompts, and selection lists",
		Parent:      CapabilityEditor,
		RiskLevel:   RiskLow,
	},
	CapabilityCommand: {
		Name:        CapabilityCommand,
		DisplayName: "Command Access",
		Description: "Register and execute commands",
		Parent:      CapabilityEditor,
		RiskLevel:   RiskLow,
	},
	CapabilityWorkspace: {
		Name:        CapabilityWorkspace,
		DisplayName: "Workspace Access",
		Description: "Resolve, open, and preview workspace files",
		Parent:      CapabilityEditor,
		RiskLevel:   RiskLow,
	},
	CapabilitySettings: {
		Name:        CapabilitySettings,
		DisplayName: "Settings Access",
		Description: "Read, write, and watch settings",
		Parent:      CapabilityEditor,
		RiskLevel:   RiskLow,
	},
	CapabilityFileRead: {
		Name:        CapabilityFileRead,
		DisplayName: "File Read",
		Description: "Read files from the filesystem",
		RiskLevel:   RiskMedium,
	},
	CapabilityFileWrite: {
		Name:                 CapabilityFileWrite,
		DisplayName:          "File Write",
		Description:          "Write files to the filesystem",
		RiskLevel:            RiskHigh,
		RequiresUserApproval: true,
	},
	CapabilityProcess: {
		Name:                 CapabilityProcess,
		DisplayName:          "Process Spawn",
		Description:          "Spawn child processes",
		RiskLevel:            RiskCritical,
		RequiresUserApproval: true,
	},
	CapabilityNetwork: {
		Name:                 CapabilityNetwork,
		DisplayName:          "Network Access",
		Description:          "Make outbound network connections",
		RiskLevel:            RiskHigh,
		RequiresUserApproval: true,
	},
	CapabilityClipboard: {
		Name:        CapabilityClipboard,
		DisplayName: "Clipboard Access",
		Description: "Read and write the system clipboard",
		RiskLevel:   RiskMedium,
	},
	CapabilityUnsafe: {
		Name:                 CapabilityUnsafe,
		DisplayName:          "Unsafe Mode",
		Description:          "Full Lua stdlib access (dangerous)",
		RiskLevel:            RiskCritical,
		RequiresUserApproval: true,
	},
}

// GetCapabilityInfo returns information about a capability.
func GetCapabilityInfo(cap Capability) (CapabilityInfo, bool) {
	info, ok := capabilityRegistry[cap]
	return info, ok
}

// IsValidCapability returns true if the capability is known.
func IsValidCapability(cap Capability) bool {
	_, ok := capabilityRegistry[cap]
	return ok
}

// AllCapabilities returns all known capabilities.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, len(capabilityRegistry))
	for cap := range capabilityRegistry {
		caps = append(caps, cap)
	}
	return caps
}

// HighRiskCapabilities returns capabilities that require user approval.
func HighRiskCapabilities() []Capability {
	var caps []Capability
	for cap, info := range capabilityRegistry {
		if info.RequiresUserApproval {
			caps = append(caps, cap)
		}
	}
	return caps
}

// IsChildOf returns true if child is a child of parent.
func IsChildOf(child, parent Capability) bool {
	return strings.HasPrefix(string(child), string(parent)+".")
}

// ImpliesCapability returns true if having granted implies having required.
// A capability implies itself and its children, and unsafe implies all.
func ImpliesCapability(granted, required Capability) bool {
	if granted == required {
		return true
	}
	if granted == CapabilityUnsafe {
		return true
	}
	return IsChildOf(required, granted)
}

// CapabilityError represents a capability-related error.
type CapabilityError struct {
	Capability Capability
	Operation  string
	Message    string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("capability %q required for %s: %s", e.Capability, e.Operation, e.Message)
	}
	return fmt.Sprintf("capability %q: %s", e.Capability, e.Message)
}

// NewCapabilityError creates a new capability error.
func NewCapabilityError(cap Capability, operation, message string) *CapabilityError {
	return &CapabilityError{
		Capability: cap,
		Operation:  operation,
		Message:    message,
	}
}
