// Package scope classifies URLs as in scope or out of scope for a
// discovery run using ordered include rules and veto exclude rules.
//
// Rules are regular expressions matched case-insensitively against the
// URL path only. Include rules carry an entity label that is propagated
// to matching URLs; exclude rules always win over include rules.
package scope
