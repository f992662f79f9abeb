// Package domain contains the core business entities, value objects, and
// domain logic of the application: projects, the content items (video ideas)
// they hold, and the principal profiles that own credit budgets. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
