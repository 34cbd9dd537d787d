package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
)

type ratingBody struct {
	Stars  int    `json:"stars" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=20"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"stars":6}`))
	var body ratingBody
	err := DecodeJSONBody(r, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["stars"] != "must be at most 5" {
		t.Fatalf("unexpected details %v", pkgerrors.As(err).Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"stars":4,"tip":10}`))
	var body ratingBody
	if err := DecodeJSONBody(r, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsMalformedShapes(t *testing.T) {
	cases := map[string]struct {
		body   string
		reason string
	}{
		"empty":      {body: "", reason: "body is empty"},
		"two values": {body: `{"stars":4}{"stars":5}`, reason: "body must contain a single JSON object"},
		"oversized":  {body: `{"stars":4,"review":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, reason: "body exceeds 65536 bytes"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var body ratingBody
			err := DecodeJSONBody(r, &body)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, _ := pkgerrors.As(err).Details().(map[string]any)
			if details["error"] != tc.reason {
				t.Fatalf("unexpected details %v", details)
			}
		})
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"stars":4,"review":"fresh veggies"}`))
	var body ratingBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Stars != 4 || body.Review != "fresh veggies" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=500", nil)
	if _, err := ParseQueryInt(r, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	r = httptest.NewRequest("GET", "/", nil)
	if v, err := ParseQueryInt(r, "limit", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default 20, got %d %v", v, err)
	}
}

func TestSanitizeText(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "  fresh veggies  ", want: "fresh veggies"},
		{in: "on time\x00\x1b[31m", want: "on time[31m"},
		{in: "line one\nline two\t", want: "line one\nline two"},
		{in: "  \u0c24\u0c3e\u0c1c\u0c3e  ", want: "\u0c24\u0c3e\u0c1c\u0c3e"},
	}
	for _, tc := range cases {
		if got := SanitizeText(tc.in); got != tc.want {
			t.Fatalf("SanitizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
