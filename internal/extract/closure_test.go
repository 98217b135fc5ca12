package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/kameel77/auto-scraper/internal/engine"
)

func TestParseClosure_InnerInvocation(t *testing.T) {
	st, err := ParseClosure(`(function(a,b){return {x:a,y:b}}("foo,bar",42))`)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}

	want := map[string]any{"a": "foo,bar", "b": 42}
	if diff := cmp.Diff(want, st.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(st.Body, "return {x:a,y:b}") {
		t.Errorf("Expected body to hold the function source, got %q", st.Body)
	}
}

func TestParseClosure_OuterInvocation(t *testing.T) {
	st, err := ParseClosure(`(function(a,b,c,d){return {}})("x",!0,void 0,null);`)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}

	want := map[string]any{"a": "x", "b": true, "c": nil, "d": nil}
	if diff := cmp.Diff(want, st.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestParseClosure_MissingValuesAreNil(t *testing.T) {
	st, err := ParseClosure(`(function(a,b){return {}}(1))`)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}
	if v, ok := st.Values["b"]; !ok || v != nil {
		t.Errorf("Expected b bound to nil, got %v (present %v)", v, ok)
	}
}

func TestParseClosure_TooManyValues(t *testing.T) {
	_, err := ParseClosure(`(function(a){return {}}(1,2))`)
	if !errors.Is(err, engine.ErrAmbiguousClosure) {
		t.Fatalf("Expected ErrAmbiguousClosure, got %v", err)
	}
	if engine.CodeOf(err) != engine.ErrCodeStructure {
		t.Errorf("Expected structure code, got %s", engine.CodeOf(err))
	}
}

func TestParseClosure_NotAFunction(t *testing.T) {
	for _, payload := range []string{`{"a":1}`, `(function(a){return {}}`, ``} {
		if _, err := ParseClosure(payload); !errors.Is(err, engine.ErrAmbiguousClosure) {
			t.Errorf("payload %q: expected ErrAmbiguousClosure, got %v", payload, err)
		}
	}
}

func TestParseClosure_StringsWithBrackets(t *testing.T) {
	st, err := ParseClosure(`(function(a,b){return {t:"})("}}(")(",'it\'s'))`)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}
	if st.Values["a"] != ")(" {
		t.Errorf("Expected a = %q, got %v", ")(", st.Values["a"])
	}
	if st.Values["b"] != "it's" {
		t.Errorf("Expected b = %q, got %v", "it's", st.Values["b"])
	}
}

func TestDecodeLiteral_EscapedSlash(t *testing.T) {
	st := &ClosureState{}
	got := st.DecodeLiteral(`"https:\u002F\u002Fcdn.autopunkt.pl\u002Fa.jpg"`)
	if got != "https://cdn.autopunkt.pl/a.jpg" {
		t.Errorf("Expected unescaped URL, got %v", got)
	}
	if got := st.DecodeLiteral("1.5"); got != "1.5" {
		t.Errorf("Expected non-integer literal kept as text, got %v", got)
	}
	if got := st.DecodeLiteral("-7"); got != -7 {
		t.Errorf("Expected -7, got %v", got)
	}
}

func TestFindNuxtPayload(t *testing.T) {
	raw := `<html><head><script>var x=1;</script><script>window.__NUXT__=(function(a){return {v:a}}("q"));</script></head></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}

	payload, ok := FindNuxtPayload(doc, raw)
	if !ok {
		t.Fatal("Expected payload to be found")
	}
	if payload != `(function(a){return {v:a}}("q"))` {
		t.Errorf("Unexpected payload %q", payload)
	}

	if _, ok := FindNuxtPayload(nil, "<html></html>"); ok {
		t.Error("Expected no payload")
	}
}

const attributePayload = `(function(a,b,c,d,e){return {data:[{car:{id:7,location:f,` +
	`attributes:[{id:12,type:a,name:"Marka",value:"Skoda",group:{id:1,name:"Dane podstawowe"}},` +
	`{id:402,type:b,name:c,value:!0,group:d}],` +
	`files:["https://cdn.autopunkt.pl/1.jpg",e,"//cdn.autopunkt.pl/3.jpg","/rel.jpg"]}}]};` +
	`f.city="Kraków";f.street="Długa 1";}("select","bool","Climatronic","Komfort","https://cdn.autopunkt.pl/2.jpg"))`

func TestClosureState_Attributes(t *testing.T) {
	st, err := ParseClosure(attributePayload)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}

	want := []Attribute{
		{ID: 12, Type: "select", Name: "Marka", Value: "Skoda", Group: "Dane podstawowe"},
		{ID: 402, Type: "bool", Name: "Climatronic", Value: true, Group: "Komfort"},
	}
	if diff := cmp.Diff(want, st.Attributes()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestClosureState_AttributesWithWhitespace(t *testing.T) {
	st := &ClosureState{
		Body: `{id: 58, type: "select", name: "Marka", value: "Kia", group: {id: 1, name: "Dane podstawowe"}},` +
			`{ id : 402 , type : "bool", name : "Klimatyzacja", value : !0, group : "Komfort" }`,
	}

	want := []Attribute{
		{ID: 58, Type: "select", Name: "Marka", Value: "Kia", Group: "Dane podstawowe"},
		{ID: 402, Type: "bool", Name: "Klimatyzacja", Value: true, Group: "Komfort"},
	}
	if diff := cmp.Diff(want, st.Attributes()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestClosureState_Files(t *testing.T) {
	st, err := ParseClosure(attributePayload)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}

	want := []string{
		"https://cdn.autopunkt.pl/1.jpg",
		"https://cdn.autopunkt.pl/2.jpg",
		"https://cdn.autopunkt.pl/3.jpg",
	}
	if diff := cmp.Diff(want, st.Files()); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestClosureState_Location(t *testing.T) {
	st, err := ParseClosure(attributePayload)
	if err != nil {
		t.Fatalf("ParseClosure failed: %v", err)
	}

	want := map[string]any{"city": "Kraków", "street": "Długa 1"}
	if diff := cmp.Diff(want, st.Location()); diff != "" {
		t.Errorf("location mismatch (-want +got):\n%s", diff)
	}
}
