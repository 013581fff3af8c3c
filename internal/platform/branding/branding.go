// Package branding centralizes user-facing product naming so services and
// tooling render the product identity consistently.
package branding

// AppName is the canonical product name rendered in UI titles, logs, and
// tool descriptions.
const AppName = "Figdock"
