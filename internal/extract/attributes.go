package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const stringLit = `"(?:[^"\\]|\\.)*"`

var (
	attributeRecord = regexp.MustCompile(
		`\{\s*id\s*:\s*(\d+)\s*,\s*type\s*:\s*([^,{}]+),\s*name\s*:\s*(` + stringLit + `|[^,{}]+),\s*value\s*:\s*(` + stringLit + `|[^,{}]+),\s*group\s*:\s*(\{[^{}]*\}|[^,{}]+)`,
	)
	objectField  = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*:\s*(` + stringLit + `|[^,{}]+)`)
	filesList    = regexp.MustCompile(`files\s*:\s*\[([^\]]*)\]`)
	quotedString = regexp.MustCompile(stringLit)
	locationRef  = regexp.MustCompile(`location\s*:\s*([A-Za-z_$][\w$]*)\b`)
	locationObj  = regexp.MustCompile(`location\s*:\s*(\{[^{}]*\})`)
)

// Attribute is one {id,type,name,value,group} record of the embedded state
type Attribute struct {
	ID    int
	Type  string
	Name  string
	Value any
	Group string
}

// Attributes returns every attribute record found in the body with all
// references resolved through the parameter table.
func (s *ClosureState) Attributes() []Attribute {
	var out []Attribute
	for _, m := range attributeRecord.FindAllStringSubmatch(s.Body, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, Attribute{
			ID:    id,
			Type:  s.ResolveString(m[2]),
			Name:  s.ResolveString(m[3]),
			Value: s.Resolve(m[4]),
			Group: s.groupLabel(m[5]),
		})
	}
	return out
}

// groupLabel resolves a group written as a reference, a literal or an
// inline {id,name} object.
func (s *ClosureState) groupLabel(tok string) string {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "{") {
		fields := s.ObjectFields(tok)
		if name, ok := fields["name"].(string); ok {
			return name
		}
		return ""
	}
	return s.ResolveString(tok)
}

// ObjectFields decodes the scalar fields of a flat object literal
func (s *ClosureState) ObjectFields(obj string) map[string]any {
	fields := make(map[string]any)
	for _, m := range objectField.FindAllStringSubmatch(obj, -1) {
		fields[m[1]] = s.Resolve(m[2])
	}
	return fields
}

// Properties collects "name.prop=value" assignments made to a hoisted
// variable inside the body.
func (s *ClosureState) Properties(name string) map[string]any {
	props := make(map[string]any)
	if !identifierR.MatchString(name) {
		return props
	}
	re := regexp.MustCompile(`(?:^|[^\w$.])` + regexp.QuoteMeta(name) + `\.([A-Za-z_$][\w$]*)=(` + stringLit + `|[^;,}]+)`)
	for _, m := range re.FindAllStringSubmatch(s.Body, -1) {
		props[m[1]] = s.Resolve(m[2])
	}
	return props
}

// Location returns the fields of the dealer location, whether assigned
// through a hoisted variable or written inline.
func (s *ClosureState) Location() map[string]any {
	if m := locationObj.FindStringSubmatch(s.Body); m != nil {
		if fields := s.ObjectFields(m[1]); len(fields) > 0 {
			return fields
		}
	}
	if m := locationRef.FindStringSubmatch(s.Body); m != nil {
		return s.Properties(m[1])
	}
	return map[string]any{}
}

// Files returns the absolute URLs listed in every files:[...] array
func (s *ClosureState) Files() []string {
	var out []string
	for _, m := range filesList.FindAllStringSubmatch(s.Body, -1) {
		for _, tok := range splitFiles(m[1]) {
			u := s.ResolveString(tok)
			if strings.HasPrefix(u, "//") {
				u = "https:" + u
			}
			if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
				out = append(out, u)
			}
		}
	}
	return out
}

func splitFiles(list string) []string {
	parts, err := splitTopLevel(list)
	if err != nil {
		return quotedString.FindAllString(list, -1)
	}
	return parts
}
