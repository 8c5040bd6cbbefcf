// Package policy evaluates Rego policies for the conftest provider family.
// Policies follow the conftest conventions: rules named deny (or violation)
// fail verification and rules named warn raise warnings, within a
// configurable package namespace. Whether failures actually fail a run is
// governed by the provider's testFailureThreshold.
package policy
