// Package providers implements the built-in provider plugin catalog and the
// registry that resolves manifest provider names to plugins.
//
// Each plugin declares a CUE schema for its config block, a typed config
// struct with defaults and validation, any implied dependencies on other
// providers, and an Init hook executed by the engine in dependency order.
package providers
