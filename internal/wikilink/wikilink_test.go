package wikilink

import "testing"

func TestName(t *testing.T) {
	cases := map[string]string{
		"[[Physical]]":                 "Physical",
		"[[Stats/Physical]]":           "Physical",
		"[[Stats/Physical.md]]":        "Physical",
		"[[Stats/Physical|Body]]":      "Body",
		"[[Physical#Training]]":        "Physical",
		"[[Physical|  ]]":              "Physical",
		`"[[Physical]]"`:               "Physical",
		`  "Intellectual" `:            "Intellectual",
		"'Social'":                     "Social",
		"Stats/Physical":               "Stats/Physical",
		"":                             "",
		"[[]]":                         "",
		"[[A]] and [[B]]":              "[[A]] and [[B]]",
		"[[Deep/Nested/Path/Note.MD]]": "Note",
	}
	for in, want := range cases {
		if got := Name(in); got != want {
			t.Fatalf("Name(%q): expected %q, got %q", in, want, got)
		}
	}
}
