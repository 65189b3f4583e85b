package access

// Jurisdictional is implemented by records that belong to a district.
type Jurisdictional interface {
	JurisdictionDistrict() string
}

// Filter narrows records to those visible in scope. It never returns nil and
// never mutates its input; unrestricted scopes get a copy of every record.
func Filter[T Jurisdictional](scope Scope, records []T) []T {
	return FilterBy(scope, records, func(r T) string { return r.JurisdictionDistrict() })
}

// FilterBy is Filter with an explicit accessor for the jurisdiction value,
// for records whose district lives under another field.
func FilterBy[T any](scope Scope, records []T, district func(T) string) []T {
	if len(records) == 0 || scope.Kind == ScopeNone {
		return []T{}
	}
	if scope.Unrestricted() {
		return append(make([]T, 0, len(records)), records...)
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if scope.Allows(district(r)) {
			out = append(out, r)
		}
	}
	return out
}
