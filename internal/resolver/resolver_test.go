package resolver

import (
	"testing"

	"github.com/starford/qrx/internal/models"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want models.ResolvedLink
	}{
		{
			name: "hash route with newline",
			raw:  "#cmd/open\nfile=report one.txt",
			want: models.ResolvedLink{
				RequestPath: "/#cmd/open file=report one.txt",
				Href:        "/#cmd/open file=report one.txt",
				QRPayload:   "/#cmd/open file=report one.txt",
			},
		},
		{
			name: "byte order mark before hash route",
			raw:  "\ufeff#cmd/open",
			want: models.ResolvedLink{
				RequestPath: "/#cmd/open",
				Href:        "/#cmd/open",
				QRPayload:   "/#cmd/open",
			},
		},
		{
			name: "byte order mark and spaces before query",
			raw:  "\ufeff page \ufeff?k=v",
			want: models.ResolvedLink{
				RequestPath: "/#page",
				Href:        "/#page?k=v",
				QRPayload:   "/#page?k=v",
			},
		},
		{
			name: "bare token with query",
			raw:  "page?x=a=b&y=c d",
			want: models.ResolvedLink{
				RequestPath: "/#page",
				Href:        "/#page?x=a%3Db&y=c%20d",
				QRPayload:   "/#page?x=a=b&y=c d",
			},
		},
		{
			name: "absolute path kept",
			raw:  "/docs/index.html?q=1",
			want: models.ResolvedLink{
				RequestPath: "/docs/index.html",
				Href:        "/docs/index.html?q=1",
				QRPayload:   "/docs/index.html?q=1",
			},
		},
		{
			name: "empty input",
			raw:  "",
			want: models.ResolvedLink{RequestPath: "/#", Href: "/#", QRPayload: "/#"},
		},
		{
			name: "trailing question mark has empty query",
			raw:  "page?",
			want: models.ResolvedLink{RequestPath: "/#page", Href: "/#page", QRPayload: "/#page"},
		},
		{
			name: "question marks inside query are kept",
			raw:  "a?b?c=d?e",
			want: models.ResolvedLink{
				RequestPath: "/#a",
				Href:        "/#a?b?c=d%3Fe",
				QRPayload:   "/#a?b?c=d?e",
			},
		},
		{
			name: "parameter without value",
			raw:  "a?flag&k=v",
			want: models.ResolvedLink{
				RequestPath: "/#a",
				Href:        "/#a?flag=&k=v",
				QRPayload:   "/#a?flag&k=v",
			},
		},
		{
			name: "multi-line query with CRLF and padding",
			raw:  "  #x \r\n\r\n ?k=v\n&m=1 2\n",
			want: models.ResolvedLink{
				RequestPath: "/#x",
				Href:        "/#x?k=v%20&m=1%202",
				QRPayload:   "/#x?k=v &m=1 2",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.raw)
			if got != tc.want {
				t.Errorf("Resolve(%q)\n got = %+v\nwant = %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestResolve_LeadingSlashPolicy(t *testing.T) {
	r := New(LeadingSlashPolicy)
	cases := map[string]string{
		"page":      "/page",
		"///page":   "/page",
		"#hash":     "/#hash",
		"":          "/",
		"a/b?k=v w": "/a/b?k=v%20w",
	}
	for raw, wantHref := range cases {
		if got := r.Resolve(raw).Href; got != wantHref {
			t.Errorf("Resolve(%q).Href = %q, want %q", raw, got, wantHref)
		}
	}
}

func TestHashRoutePolicy(t *testing.T) {
	cases := map[string]string{
		"#a":  "/#a",
		"/a":  "/a",
		"a":   "/#a",
		"":    "/#",
		"//a": "//a",
	}
	for in, want := range cases {
		if got := HashRoutePolicy(in); got != want {
			t.Errorf("HashRoutePolicy(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", PolicyHash, PolicySlash} {
		p, err := PolicyByName(name)
		if err != nil || p == nil {
			t.Errorf("PolicyByName(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := PolicyByName("query"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestNilPolicyDefaultsToHash(t *testing.T) {
	r := &Resolver{}
	if got := r.Resolve("x").RequestPath; got != "/#x" {
		t.Errorf("RequestPath = %q, want %q", got, "/#x")
	}
}

func TestSplitOnce(t *testing.T) {
	head, rest, found := SplitOnce("a=b=c", "=")
	if head != "a" || rest != "b=c" || !found {
		t.Errorf("SplitOnce = %q, %q, %v", head, rest, found)
	}
	head, rest, found = SplitOnce("abc", "=")
	if head != "abc" || rest != "" || found {
		t.Errorf("SplitOnce without sep = %q, %q, %v", head, rest, found)
	}
}

func TestSplit(t *testing.T) {
	got := Split("  base  ?q=1?2\n")
	want := models.PathParts{BasePath: "base", RawQuery: "q=1?2"}
	if got != want {
		t.Errorf("Split = %+v, want %+v", got, want)
	}
}

func TestEscapeComponent(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"plain":    "plain",
		"c d":      "c%20d",
		"a=b":      "a%3Db",
		"a+b&c/d":  "a%2Bb%26c%2Fd",
		"!~*'()-_": "!~*'()-_",
		"héllo":    "h%C3%A9llo",
		"100%":     "100%25",
		"#?":       "%23%3F",
	}
	for in, want := range cases {
		if got := EscapeComponent(in); got != want {
			t.Errorf("EscapeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}
