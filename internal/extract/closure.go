// internal/extract/closure.go
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/kameel77/auto-scraper/internal/engine"
)

// Nuxt-style pages serialize their state as an immediately invoked function
//
//	window.__NUXT__=(function(a,b,c){return {...}}("x",42,null));
//
// where repeated values are hoisted into parameters. ClosureState recovers
// the parameter to value table so field references can be resolved.
type ClosureState struct {
	Params []string
	Values map[string]any
	Body   string

	vm *goja.Runtime
}

var (
	nuxtAssign  = regexp.MustCompile(`window\.__NUXT__\s*=\s*`)
	nuxtRaw     = regexp.MustCompile(`(?s)window\.__NUXT__\s*=\s*(.*?);?\s*</script>`)
	paramList   = regexp.MustCompile(`^\(\s*function\s*\(([^)]*)\)`)
	integerLit  = regexp.MustCompile(`^-?\d+$`)
	identifierR = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

// FindNuxtPayload returns the expression assigned to window.__NUXT__,
// preferring the parsed script elements and falling back to the raw markup.
func FindNuxtPayload(doc *goquery.Document, rawHTML string) (string, bool) {
	var payload string
	if doc != nil {
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.Text()
			loc := nuxtAssign.FindStringIndex(text)
			if loc == nil {
				return true
			}
			payload = text[loc[1]:]
			return false
		})
	}
	if payload == "" && rawHTML != "" {
		if m := nuxtRaw.FindStringSubmatch(rawHTML); m != nil {
			payload = m[1]
		}
	}
	payload = trimStatement(payload)
	return payload, payload != ""
}

// ParseClosure decodes the parameter table of a serialized state closure.
//
// The argument list is located by scanning from the end of the payload for
// the matching delimiters, honoring string literals and bracket nesting.
// Both "(function(){...}(args))" and "(function(){...})(args)" are
// accepted. Anything else, including more values than parameters, fails
// with ErrAmbiguousClosure.
func ParseClosure(payload string) (*ClosureState, error) {
	p := trimStatement(payload)

	m := paramList.FindStringSubmatch(p)
	if m == nil {
		return nil, ambiguous("payload is not an immediately invoked function")
	}
	params := splitParams(m[1])

	open, closeIdx, err := locateArguments(p)
	if err != nil {
		return nil, err
	}

	args, err := splitTopLevel(p[open+1 : closeIdx])
	if err != nil {
		return nil, err
	}
	if len(args) > len(params) {
		return nil, ambiguous(fmt.Sprintf("%d values for %d parameters", len(args), len(params)))
	}

	st := &ClosureState{
		Params: params,
		Values: make(map[string]any, len(params)),
		Body:   p[len(m[0]):open],
	}
	for i, name := range params {
		if i < len(args) {
			st.Values[name] = st.DecodeLiteral(args[i])
		} else {
			st.Values[name] = nil
		}
	}
	return st, nil
}

// Resolve maps a token from the body to its value: a parameter name yields
// the bound value, anything else is decoded as a literal.
func (s *ClosureState) Resolve(token string) any {
	token = strings.TrimSpace(token)
	if v, ok := s.Values[token]; ok {
		return v
	}
	return s.DecodeLiteral(token)
}

// ResolveString is Resolve restricted to string results
func (s *ClosureState) ResolveString(token string) string {
	switch v := s.Resolve(token).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// DecodeLiteral turns a JavaScript literal into a Go value: strings,
// null/undefined as nil, booleans and integers. Other tokens such as object
// literals are returned as their source text.
func (s *ClosureState) DecodeLiteral(tok string) any {
	tok = strings.TrimSpace(tok)
	switch tok {
	case "", "null", "undefined", "void 0":
		return nil
	case "true", "!0":
		return true
	case "false", "!1":
		return false
	}
	if isQuoted(tok) {
		return s.decodeString(tok)
	}
	if integerLit.MatchString(tok) {
		if n, err := strconv.Atoi(tok); err == nil {
			return n
		}
	}
	return tok
}

func (s *ClosureState) decodeString(tok string) string {
	inner := tok[1 : len(tok)-1]
	if !strings.Contains(inner, `\`) || (tok[0] == '`' && strings.Contains(inner, "${")) {
		return inner
	}
	if s.vm == nil {
		s.vm = goja.New()
	}
	v, err := s.vm.RunString("(" + tok + ")")
	if err == nil {
		if str, ok := v.Export().(string); ok {
			return str
		}
	}
	if tok[0] == '"' {
		if str, err := strconv.Unquote(tok); err == nil {
			return str
		}
	}
	return inner
}

// locateArguments returns the indexes of the parentheses around the
// invocation arguments.
func locateArguments(p string) (int, int, error) {
	if !strings.HasSuffix(p, ")") {
		return 0, 0, ambiguous("payload does not end with an invocation")
	}

	type candidate struct{ open, close int }
	var found []candidate

	// (function(){...}(args)) : args close just before the final paren
	inner := strings.TrimRight(p[:len(p)-1], " \t\r\n")
	if strings.HasSuffix(inner, ")") {
		closeIdx := len(inner) - 1
		if open, err := matchBackward(p, closeIdx); err == nil && lastNonSpace(p[:open]) == '}' {
			if outer, err := matchBackward(p, len(p)-1); err == nil && outer == 0 {
				found = append(found, candidate{open, closeIdx})
			}
		}
	}

	// (function(){...})(args) : the final paren closes the args
	if open, err := matchBackward(p, len(p)-1); err == nil && open > 0 && lastNonSpace(p[:open]) == ')' {
		before := strings.TrimRight(p[:open], " \t\r\n")
		if lastNonSpace(before[:len(before)-1]) == '}' {
			found = append(found, candidate{open, len(p) - 1})
		}
	}

	switch len(found) {
	case 1:
		return found[0].open, found[0].close, nil
	case 0:
		return 0, 0, ambiguous("argument list not found")
	default:
		return 0, 0, ambiguous("argument list matches more than one invocation shape")
	}
}

// matchBackward finds the opening bracket matching the closer at closeIdx
func matchBackward(s string, closeIdx int) (int, error) {
	var stack []byte
	var quote byte

	for i := closeIdx; i >= 0; i-- {
		c := s[i]
		if quote != 0 {
			if c == quote && !escapedAt(s, i) {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case ')', ']', '}':
			stack = append(stack, c)
		case '(', '[', '{':
			if len(stack) == 0 {
				return -1, ambiguous("unbalanced brackets")
			}
			top := stack[len(stack)-1]
			if !pairs(c, top) {
				return -1, ambiguous("mismatched brackets")
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, nil
			}
		}
	}
	return -1, ambiguous("unbalanced brackets")
}

// splitTopLevel splits a comma separated list, ignoring commas inside
// strings and nested brackets.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	var quote byte
	depth := 0
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, ambiguous("unbalanced brackets in arguments")
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, ambiguous("unterminated string in arguments")
	}
	if depth != 0 {
		return nil, ambiguous("unbalanced brackets in arguments")
	}
	if last := strings.TrimSpace(s[start:]); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts, nil
}

func splitParams(list string) []string {
	var params []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); identifierR.MatchString(p) {
			params = append(params, p)
		}
	}
	return params
}

func trimStatement(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func lastNonSpace(s string) byte {
	t := strings.TrimRight(s, " \t\r\n")
	if t == "" {
		return 0
	}
	return t[len(t)-1]
}

func pairs(open, close byte) bool {
	return (open == '(' && close == ')') || (open == '[' && close == ']') || (open == '{' && close == '}')
}

func isQuoted(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	q := tok[0]
	return (q == '"' || q == '\'' || q == '`') && tok[len(tok)-1] == q
}

func ambiguous(reason string) error {
	return engine.NewEngineError(engine.ErrCodeStructure, reason, engine.ErrAmbiguousClosure)
}
