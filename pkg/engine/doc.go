// Package engine provides the core types and interfaces for the Verdant
// provider subsystem. It covers the provider lifecycle from manifest entry to
// cached status: Registry -> Environment Filter -> Dependency Resolver ->
// Initialization -> Status Cache.
//
// The flow for a command invocation is:
//
//  1. The project manifest is parsed into ProviderEntry values.
//  2. FilterForEnvironment prunes entries that are not active in the
//     invocation's environment.
//  3. GraphBuilder orders the remaining entries so that every dependency
//     (explicit or plugin-implied) initializes before its dependents, and
//     rejects cycles.
//  4. Engine.Init walks the order, consulting the status cache before
//     running a provider's preInit script and Init hook, and persists the
//     resulting status keyed by the provider's config hash.
//
// Plugins live in pkg/providers; the persisted cache lives in pkg/stores.
package engine
