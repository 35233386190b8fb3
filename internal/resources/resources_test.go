package resources

import (
	"context"
	"strings"
	"testing"
)

type fakeGazetteer struct {
	count int
	err   error
}

func (f fakeGazetteer) Stat() (int, error) { return f.count, f.err }

func TestCatalogListIncludesGazetteerInfo(t *testing.T) {
	c := NewCatalog(fakeGazetteer{count: 42}, "2026-01-01")
	resources := c.List(context.Background())

	var found bool
	for _, r := range resources {
		if r.URI == gazetteerInfoURI {
			found = true
			if !strings.Contains(r.Text, `"recordCount":42`) {
				t.Errorf("gazetteer info text = %q, want recordCount 42", r.Text)
			}
		}
	}
	if !found {
		t.Fatal("gazetteer-info resource missing from catalog")
	}
}

func TestCatalogGetUnknownURI(t *testing.T) {
	c := NewCatalog(nil, "")
	if _, ok := c.Get(context.Background(), "weather://nope"); ok {
		t.Fatal("expected unknown URI to miss")
	}
}

func TestCatalogGetStaticResource(t *testing.T) {
	c := NewCatalog(nil, "")
	r, ok := c.Get(context.Background(), "weather://license")
	if !ok {
		t.Fatal("expected license resource to be present")
	}
	if !strings.Contains(r.Text, "CC BY 4.0") {
		t.Errorf("license text = %q, want CC BY 4.0 mention", r.Text)
	}
}

func TestCatalogGazetteerInfoWithNilStore(t *testing.T) {
	c := NewCatalog(nil, "")
	r, ok := c.Get(context.Background(), gazetteerInfoURI)
	if !ok {
		t.Fatal("expected gazetteer-info to always be present")
	}
	if !strings.Contains(r.Text, `"recordCount":0`) {
		t.Errorf("expected zero record count with nil store, got %q", r.Text)
	}
}

func TestPromptRenderSubstitutesArguments(t *testing.T) {
	prompts := Prompts()
	var p Prompt
	for _, cand := range prompts {
		if cand.Name == "plan_outdoor_activity" {
			p = cand
		}
	}
	if p.Name == "" {
		t.Fatal("plan_outdoor_activity prompt not found")
	}
	rendered := Render(p, map[string]string{"location": "Oslo", "activity": "running"})
	if !strings.Contains(rendered, "Oslo") || !strings.Contains(rendered, "running") {
		t.Errorf("rendered = %q, want both arguments substituted", rendered)
	}
}

func TestPromptRenderLeavesUnmatchedPlaceholderAlone(t *testing.T) {
	p := Prompt{
		Name:      "x",
		Arguments: []PromptArgument{{Name: "a"}},
		Template:  "value is {{a}}",
	}
	rendered := Render(p, map[string]string{})
	if rendered != "value is {{a}}" {
		t.Errorf("rendered = %q, want placeholder left untouched", rendered)
	}
}
