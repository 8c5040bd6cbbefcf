package engine

// FilterResult is the outcome of pruning provider entries for an environment.
type FilterResult struct {
	// Active are the entries active in the environment, in manifest order.
	Active []ProviderEntry

	// Inactive are the names of entries pruned for this environment,
	// including entries disabled everywhere.
	Inactive []string
}

// FilterForEnvironment prunes provider entries that are not active in the
// named environment. An entry with a nil environments list is active
// everywhere; an entry with an empty list is active nowhere.
//
// Filtering happens before dependency resolution, so a dependency on a
// pruned provider surfaces as a missing-dependency error for the
// environment rather than silently re-activating the pruned entry.
func FilterForEnvironment(entries []ProviderEntry, environment string) *FilterResult {
	result := &FilterResult{
		Active:   make([]ProviderEntry, 0, len(entries)),
		Inactive: make([]string, 0),
	}

	for _, entry := range entries {
		if entry.ActiveIn(environment) {
			result.Active = append(result.Active, entry)
		} else {
			result.Inactive = append(result.Inactive, entry.Name)
		}
	}

	return result
}
