// Package config loads and validates the Verdant project manifest.
// The manifest (verdant.yaml) declares the project, its named environments
// and its providers; discovery walks up from the working directory the way
// the CLI bootstrapper does. Plugin config blocks are additionally validated
// against the CUE schemas each plugin declares.
package config
