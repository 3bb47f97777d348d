// Package extraction defines the core types, collaborator contracts, and
// error taxonomy shared across the document extraction subsystems.
package extraction
