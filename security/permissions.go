package security

import (
	"path/filepath"
	"strings"
	"sync"
)

// PermissionChecker validates permissions for extension operations.
type PermissionChecker struct {
	mu sync.RWMutex

	// Granted capabilities
	capabilities map[Capability]bool

	// File system restrictions (normalized absolute paths)
	allowedPaths  []string
	blockedPaths  []string
	workspacePath string

	// Extension identity
	extensionName string
}

// NewPermissionChecker creates a checker for the named extension with no
// capabilities granted.
func NewPermissionChecker(extensionName string) *PermissionChecker {
	return &PermissionChecker{
		capabilities:  make(map[Capability]bool),
		extensionName: extensionName,
	}
}

// ExtensionName returns the name the checker was created for.
func (pc *PermissionChecker) ExtensionName() string {
	return pc.extensionName
}

// Grant grants a capability.
func (pc *PermissionChecker) Grant(cap Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.capabilities[cap] = true
}

// GrantAll grants multiple capabilities.
func (pc *PermissionChecker) GrantAll(caps []Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for _, cap := range caps {
		pc.capabilities[cap] = true
	}
}

// Revoke revokes a directly granted capability. Capabilities implied by a
// still-granted parent remain effective.
func (pc *PermissionChecker) Revoke(cap Capability) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	delete(pc.capabilities, cap)
}

// HasCapability returns true if the capability is granted directly or
// implied by a granted parent.
func (pc *PermissionChecker) HasCapability(cap Capability) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.capabilities[cap] {
		return true
	}
	for granted := range pc.capabilities {
		if ImpliesCapability(granted, cap) {
			return true
		}
	}
	return false
}

// CheckCapability returns an error if the capability is not granted.
func (pc *PermissionChecker) CheckCapability(cap Capability) error {
	if !pc.HasCapability(cap) {
		return NewCapabilityError(cap, "", "not granted")
	}
	return nil
}

// Capabilities returns all directly granted capabilities.
func (pc *PermissionChecker) Capabilities() []Capability {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	caps := make([]Capability, 0, len(pc.capabilities))
	for cap := range pc.capabilities {
		caps = append(caps, cap)
	}
	return caps
}

// SetWorkspacePath sets the workspace root for file access checks.
// The path is normalized to an absolute path.
func (pc *PermissionChecker) SetWorkspacePath(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.workspacePath = normalizePath(path)
}

// AllowPath adds a path to the allowed list.
func (pc *PermissionChecker) AllowPath(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.allowedPaths = append(pc.allowedPaths, normalizePath(path))
}

// BlockPath adds a path to the blocked list. Blocked paths take
// precedence over allowed paths and the workspace.
func (pc *PermissionChecker) BlockPath(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.blockedPaths = append(pc.blockedPaths, normalizePath(path))
}

// CheckFileRead checks if reading a file is permitted.
func (pc *PermissionChecker) CheckFileRead(path string) error {
	if !pc.HasCapability(CapabilityFileRead) {
		return NewCapabilityError(CapabilityFileRead, "read file", "not granted")
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.checkPathAccess(path, CapabilityFileRead, "read file")
}

// CheckFileWrite checks if writing a file is permitted.
func (pc *PermissionChecker) CheckFileWrite(path string) error {
	if !pc.HasCapability(CapabilityFileWrite) {
		return NewCapabilityError(CapabilityFileWrite, "write file", "not granted")
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.checkPathAccess(path, CapabilityFileWrite, "write file")
}

// checkPathAccess validates path access against the blocked list, the
// allowed list, and the workspace, in that order. Callers hold pc.mu.
func (pc *PermissionChecker) checkPathAccess(path string, cap Capability, operation string) error {
	absPath := normalizePath(path)

	for _, blocked := range pc.blockedPaths {
		if isWithinPath(absPath, blocked) {
			return NewCapabilityError(cap, operation, "path is blocked")
		}
	}

	if len(pc.allowedPaths) > 0 {
		for _, allowed := range pc.allowedPaths {
			if isWithinPath(absPath, allowed) {
				return nil
			}
		}
		return NewCapabilityError(cap, operation, "path not in allowed list")
	}

	if pc.workspacePath != "" && !isWithinPath(absPath, pc.workspacePath) {
		return NewCapabilityError(cap, operation, "path outside workspace")
	}

	return nil
}

// normalizePath returns an absolute, clean path.
func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// isWithinPath checks if target is within or equal to base using
// filepath.Rel, so "/tmp/blocked" does not match "/tmp/blockedfile".
func isWithinPath(target, base string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}
