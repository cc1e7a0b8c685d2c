package policy

import "strings"

// Reason codes for every terminal of the decision chain. Stable strings:
// audit records and metrics aggregate on them.
const (
	ReasonUnknownRole       = "unknown_role"
	ReasonUnknownIntent     = "unknown_intent"
	ReasonExplicitDeny      = "explicit_deny"
	ReasonNotInAllow        = "not_in_allow"
	ReasonBreakGlassMissing = "break_glass_missing"
	ReasonBreakGlassAllow   = "break_glass_allow"
	ReasonAllowMatch        = "allow_match"
)

// intentUnknown is the classifier's fallback label.
const intentUnknown = "unknown"

// ReasonMissingAttr builds the parameterized reason for the first unmet
// attribute requirement.
func ReasonMissingAttr(key string) string {
	return "missing_attr:" + key
}

// RequestContext is the per-request identity handed over by the fronting
// identity layer. Absent attribute keys are absent, not empty strings.
type RequestContext struct {
	Role       string            `json:"role"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Decision is the structured outcome of evaluating one request.
type Decision struct {
	Allowed        bool     `json:"allowed"`
	Reason         string   `json:"reason"`
	Intent         string   `json:"intent"`
	Resources      []string `json:"resources,omitempty"`
	BreakGlassUsed bool     `json:"break_glass_used,omitempty"`
}

// Evaluate runs the ordered decision chain for a classified intent. The order
// is load-bearing: unknown identity and unknown intent fail closed first,
// explicit deny dominates allow, attribute requirements gate before the
// break-glass and allow resolutions, and break-glass intents never resolve
// through the plain allow list. Pure and deterministic; identical inputs
// against the same document yield identical decisions.
func (d *Document) Evaluate(rc RequestContext, intentName string) Decision {
	dec := Decision{Intent: intentName}

	role, ok := d.Roles[rc.Role]
	if !ok {
		dec.Reason = ReasonUnknownRole
		return dec
	}
	if intentName == "" || intentName == intentUnknown {
		dec.Reason = ReasonUnknownIntent
		return dec
	}
	if containsOrWildcard(role.Deny, intentName) {
		dec.Reason = ReasonExplicitDeny
		return dec
	}

	rule := d.Intents[intentName]
	for _, req := range rule.RequiresAttributes {
		if v, present := rc.Attributes[req.Key]; !present || v != req.Value {
			dec.Reason = ReasonMissingAttr(req.Key)
			return dec
		}
	}

	if rule.BreakGlass {
		if len(role.BreakGlassRequires) == 0 {
			dec.Reason = ReasonNotInAllow
			return dec
		}
		for _, key := range role.BreakGlassRequires {
			if strings.TrimSpace(rc.Attributes[key]) == "" {
				dec.Reason = ReasonBreakGlassMissing
				return dec
			}
		}
		dec.Allowed = true
		dec.Reason = ReasonBreakGlassAllow
		dec.BreakGlassUsed = true
		dec.Resources = append([]string(nil), rule.Resources...)
		return dec
	}

	if containsOrWildcard(role.Allow, intentName) {
		dec.Allowed = true
		dec.Reason = ReasonAllowMatch
		dec.Resources = append([]string(nil), rule.Resources...)
		return dec
	}

	dec.Reason = ReasonNotInAllow
	return dec
}

// containsOrWildcard is a sentinel membership check, not glob matching.
func containsOrWildcard(list []string, name string) bool {
	for _, v := range list {
		if v == Wildcard || v == name {
			return true
		}
	}
	return false
}
