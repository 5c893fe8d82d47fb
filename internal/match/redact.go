package match

import "encoding/json"

// restrictedFields is the denylist of identity- and organization-revealing
// keys stripped from payloads before they cross the boundary during the
// blind phase of matching. Keys are JSON field names.
var restrictedFields = map[string]struct{}{
	"name":           {},
	"display_name":   {},
	"photo":          {},
	"avatar_url":     {},
	"age":            {},
	"gender":         {},
	"school":         {},
	"institution":    {},
	"ethnicity":      {},
	"religion":       {},
	"marital_status": {},
	"birthdate":      {},
	"email":          {},
	"phone":          {},
	"address":        {},
	"handle":         {},
	"linkedin":       {},
	"twitter":        {},
	"social_media":   {},
	"org_id":         {},
	"org_name":       {},
	"legal_name":     {},
	"employer_name":  {},
	"contact_email":  {},
}

// RestrictedField reports whether a JSON field name is on the redaction
// denylist.
func RestrictedField(key string) bool {
	_, ok := restrictedFields[key]
	return ok
}

// Scrub recursively removes denylisted fields from a decoded JSON value
// (maps, slices, scalars). The input is never mutated; a new value is
// returned. Scrub has no scoring impact and must run after ranking so
// gating logic always sees full data.
func Scrub(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if RestrictedField(k) {
				continue
			}
			out[k] = Scrub(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Scrub(inner)
		}
		return out
	default:
		return v
	}
}

// ContainsRestrictedFields reports whether a decoded JSON value still
// carries any denylisted field at any depth. Useful for tests and boundary
// assertions.
func ContainsRestrictedFields(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if RestrictedField(k) {
				return true
			}
			if ContainsRestrictedFields(inner) {
				return true
			}
		}
	case []any:
		for _, inner := range val {
			if ContainsRestrictedFields(inner) {
				return true
			}
		}
	}
	return false
}

// RedactAssignment returns a copy of the assignment with every denylisted
// field removed from its JSON form. Scrubbing the serialized document,
// rather than clearing struct fields by name, keeps the denylist
// authoritative for nested values and for fields added to Assignment later.
func RedactAssignment(a Assignment) Assignment {
	raw, err := json.Marshal(a)
	if err != nil {
		return clearIdentityFields(a)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return clearIdentityFields(a)
	}
	scrubbed, err := json.Marshal(Scrub(doc))
	if err != nil {
		return clearIdentityFields(a)
	}
	var out Assignment
	if err := json.Unmarshal(scrubbed, &out); err != nil {
		return clearIdentityFields(a)
	}
	return out
}

// clearIdentityFields is the fallback when the JSON round trip fails.
func clearIdentityFields(a Assignment) Assignment {
	a.OrgID = ""
	a.OrgName = ""
	a.ContactEmail = ""
	return a
}
