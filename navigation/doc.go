// Package navigation derives the role-based menu and route access rules from a
// fixed table.
//
// The role set is closed: [Admin], [Manager], [HR] and [Employee]. Any other
// role string, and an absent user, produce no menu items and no route access.
// Lookups never fail; an unknown role degrades to "nothing".
package navigation
