package catalog

import (
	"testing"
	"testing/fstest"
)

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader()
	if err := loader.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults failed: %v", err)
	}

	questions := loader.Questions()
	if len(questions) != 10 {
		t.Fatalf("expected 10 stress questions, got %d", len(questions))
	}
	if questions[0].ID != "pss-01" || questions[9].ID != "pss-10" {
		t.Errorf("questions not in display order: %s..%s", questions[0].ID, questions[9].ID)
	}
	if q := loader.Question("pss-04"); q == nil || !q.Reverse {
		t.Errorf("pss-04 should be reverse scored")
	}

	events := loader.Events()
	if len(events) != 43 {
		t.Fatalf("expected 43 Holmes-Rahe events, got %d", len(events))
	}
	if events[0].Points != 100 {
		t.Errorf("heaviest event first, got %d", events[0].Points)
	}

	for _, score := range []int{0, 13, 14, 26, 27, 40} {
		if loader.FeedbackFor(score) == nil {
			t.Errorf("no feedback band for score %d", score)
		}
	}
	if fb := loader.FeedbackFor(20); fb.ID != "moderate" {
		t.Errorf("score 20 should be moderate, got %s", fb.ID)
	}
	if loader.FeedbackFor(41) != nil {
		t.Errorf("score 41 is outside every band")
	}

	c := loader.Catalog()
	if len(c.Questions) != 10 || len(c.Feedback) != 3 || len(c.HolmesRaheEvents) != 43 {
		t.Errorf("unexpected catalog snapshot: %d/%d/%d", len(c.Questions), len(c.Feedback), len(c.HolmesRaheEvents))
	}
}

func TestLoadFSRejectsBadCatalog(t *testing.T) {
	cases := map[string]string{
		"overlap": `
feedback:
  - {id: a, min_score: 0, max_score: 10, title: A, message: a}
  - {id: b, min_score: 10, max_score: 20, title: B, message: b}
`,
		"min above max": `
questions:
  - {id: q1, text: "Q", min: 4, max: 0}
`,
		"missing label": `
events:
  - {id: e1, points: 10}
`,
		"not yaml": "questions: [",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			loader := NewLoader()
			if err := loader.LoadDefaults(); err != nil {
				t.Fatalf("LoadDefaults failed: %v", err)
			}
			err := loader.LoadFS(fstest.MapFS{"bad.yaml": {Data: []byte(body)}})
			if err == nil {
				t.Fatalf("expected an error")
			}
			if len(loader.Questions()) != 10 {
				t.Fatalf("failed load must keep the previous catalog")
			}
		})
	}
}

func TestLoadFSMergesFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yml":    {Data: []byte("questions:\n  - {id: q1, text: Q1, order: 2, min: 0, max: 3}\n")},
		"b.yaml":   {Data: []byte("questions:\n  - {id: q0, text: Q0, order: 1, min: 0, max: 3}\nevents:\n  - {id: e1, label: Move, points: 20}\n")},
		"notes.md": {Data: []byte("ignored")},
	}
	loader := NewLoader()
	if err := loader.LoadFS(fsys); err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	qs := loader.Questions()
	if len(qs) != 2 || qs[0].ID != "q0" {
		t.Fatalf("unexpected questions: %+v", qs)
	}
	if loader.Event("e1") == nil {
		t.Fatalf("event e1 not loaded")
	}
}
