package models

import (
	"encoding/json"
	"testing"
)

func TestAnswersAcceptsListAndMap(t *testing.T) {
	var list Answers
	if err := json.Unmarshal([]byte(`[{"questionId":"q2","answer":3},{"questionId":"q1","answer":1}]`), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 2 || list[0].QuestionID != "q2" {
		t.Fatalf("list order must be kept: %+v", list)
	}

	var fromMap Answers
	if err := json.Unmarshal([]byte(`{"q2": 4, "q1": "2", "e3": true, "e4": false}`), &fromMap); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	want := Answers{{"e3", 1}, {"e4", 0}, {"q1", 2}, {"q2", 4}}
	if len(fromMap) != len(want) {
		t.Fatalf("got %+v, want %+v", fromMap, want)
	}
	for i := range want {
		if fromMap[i] != want[i] {
			t.Fatalf("answer %d: got %+v, want %+v", i, fromMap[i], want[i])
		}
	}

	b, err := json.Marshal(fromMap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if b[0] != '[' {
		t.Fatalf("answers must encode as a list, got %s", b)
	}
}

func TestAnswersRejectsGarbage(t *testing.T) {
	var a Answers
	if err := json.Unmarshal([]byte(`{"q1":"lots"}`), &a); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
	if err := json.Unmarshal([]byte(`"nope"`), &a); err == nil {
		t.Fatalf("expected error for scalar answers")
	}
}

func TestAnswersMapRejectsFractionalAndOverflow(t *testing.T) {
	for _, in := range []string{
		`{"hr-01": 1.9}`,
		`{"hr-01": 1e300}`,
		`{"hr-01": 99999999999999999999999}`,
		`[{"questionId":"hr-01","answer":1.9}]`,
	} {
		var a Answers
		if err := json.Unmarshal([]byte(in), &a); err == nil {
			t.Fatalf("%s: expected error, got %+v", in, a)
		}
	}

	var a Answers
	if err := json.Unmarshal([]byte(`{"hr-01": -2}`), &a); err != nil {
		t.Fatalf("negative integers decode and are range-checked later: %v", err)
	}
	if a[0].Answer != -2 {
		t.Fatalf("got %+v", a)
	}
}

func TestRiskCategoryFor(t *testing.T) {
	cases := []struct {
		score int
		want  RiskCategory
	}{
		{0, RiskLow},
		{149, RiskLow},
		{150, RiskModerate},
		{299, RiskModerate},
		{300, RiskHigh},
		{612, RiskHigh},
	}
	for _, c := range cases {
		if got := RiskCategoryFor(c.score); got != c.want {
			t.Fatalf("RiskCategoryFor(%d)=%s, want %s", c.score, got, c.want)
		}
	}
}

func TestAsHolmesRahe(t *testing.T) {
	score := 180
	r := &DiagnosticResult{Kind: KindHolmesRahe, TotalScore: score, StressScore: &score, RiskCategory: RiskModerate}
	hr, ok := r.AsHolmesRahe()
	if !ok || hr.StressScore != 180 || hr.RiskCategory != RiskModerate {
		t.Fatalf("unexpected view: %+v ok=%v", hr, ok)
	}
	b, _ := json.Marshal(hr)
	var back map[string]any
	_ = json.Unmarshal(b, &back)
	if back["stressScore"].(float64) != 180 || back["riskCategory"] != "Moyen" {
		t.Fatalf("unexpected json: %s", b)
	}

	if _, ok := (&DiagnosticResult{Kind: KindStress}).AsHolmesRahe(); ok {
		t.Fatalf("stress result must not convert")
	}
}

func TestApiClientHasPermission(t *testing.T) {
	c := &ApiClient{IsActive: true, Permissions: []string{"resources:read", "diagnostics:*"}}
	if !c.HasPermission("resources:read") {
		t.Fatalf("exact permission denied")
	}
	if c.HasPermission("resources:write") {
		t.Fatalf("write must be denied")
	}
	if !c.HasPermission("diagnostics:write") {
		t.Fatalf("wildcard scope denied")
	}
	if c.HasPermission("diagnosticsx:write") {
		t.Fatalf("wildcard must not match a longer scope")
	}
	c.IsActive = false
	if c.HasPermission("resources:read") {
		t.Fatalf("inactive client must be denied")
	}
	all := &ApiClient{IsActive: true, Permissions: []string{"*"}}
	if !all.HasPermission("users:write") {
		t.Fatalf("global wildcard denied")
	}
}

func TestValidSlugAndSortSections(t *testing.T) {
	for _, s := range []string{"a-propos", "faq", "page-2"} {
		if !ValidSlug(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "A-propos", "a--b", "-a", "a b"} {
		if ValidSlug(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
	p := &InfoPage{Sections: []*Section{{ID: "b", Order: 2}, {ID: "c", Order: 1}, {ID: "a", Order: 2}}}
	p.SortSections()
	if p.Sections[0].ID != "c" || p.Sections[1].ID != "a" || p.Sections[2].ID != "b" {
		t.Fatalf("unexpected order: %s %s %s", p.Sections[0].ID, p.Sections[1].ID, p.Sections[2].ID)
	}
}

func TestResourceFiltersMatches(t *testing.T) {
	r := &Resource{Title: "Respiration carrée", Description: "Exercice", Category: "Sleep", IsActive: false}
	if !(ResourceFilters{Category: "sleep"}).Matches(r) {
		t.Fatalf("category match is case-insensitive")
	}
	if (ResourceFilters{ActiveOnly: true}).Matches(r) {
		t.Fatalf("inactive resource must be filtered")
	}
	if !(ResourceFilters{Search: "CARRÉE"}).Matches(r) {
		t.Fatalf("search should match title")
	}
}
