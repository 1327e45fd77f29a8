package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/asolanog/conversia/internal/models"
)

func TestParseIdentifierSentinel(t *testing.T) {
	for _, raw := range []any{nil, "", map[string]any{}} {
		ident, err := ParseIdentifier(raw)
		if ident.Type != models.ClientTypeID || ident.Value != NoClient {
			t.Errorf("ParseIdentifier(%v) = %+v, want id/%q sentinel", raw, ident, NoClient)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseIdentifier(%v) error = %v, want *ParseError", raw, err)
		}
	}
}

func TestParseIdentifierUUIDString(t *testing.T) {
	const id = "a3bb189e-8bf9-3888-9912-ace4e6543002"

	ident, err := ParseIdentifier(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.Type != models.ClientTypeID || ident.Value != id {
		t.Errorf("got %+v, want id/%s", ident, id)
	}
}

func TestParseIdentifierOpaqueString(t *testing.T) {
	// Not a UUID: value passes through unchanged, anomaly reported.
	ident, err := ParseIdentifier("cliente-legacy-7")
	if ident.Value != "cliente-legacy-7" {
		t.Errorf("value = %q, want unchanged", ident.Value)
	}
	if err == nil {
		t.Error("expected shape anomaly for non-UUID id")
	}
}

func TestParseIdentifierJSONEncodedObject(t *testing.T) {
	ident, err := ParseIdentifier(`{"type":"phone","value":"612345678"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.Type != models.ClientTypePhone {
		t.Errorf("type = %s, want phone", ident.Type)
	}
	if ident.Value != "+34 612 345 678" {
		t.Errorf("value = %q, want formatted phone", ident.Value)
	}
}

func TestParseIdentifierObject(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]any
		wantType  models.ClientIdentifierType
		wantValue string
	}{
		{
			"value field with phone type",
			map[string]any{"type": "phone", "value": "34612345678"},
			models.ClientTypePhone, "+34 612 345 678",
		},
		{
			"value field without type defaults to id",
			map[string]any{"value": "a3bb189e-8bf9-3888-9912-ace4e6543002"},
			models.ClientTypeID, "a3bb189e-8bf9-3888-9912-ace4e6543002",
		},
		{
			"numeric value is stringified",
			map[string]any{"type": "phone", "value": float64(612345678)},
			models.ClientTypePhone, "+34 612 345 678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident, err := ParseIdentifier(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ident.Type != tt.wantType || ident.Value != tt.wantValue {
				t.Errorf("got %+v, want %s/%q", ident, tt.wantType, tt.wantValue)
			}
		})
	}
}

func TestParseIdentifierObjectFallbackProperty(t *testing.T) {
	ident, _ := ParseIdentifier(map[string]any{"telefono": "si", "zz": "no"})
	if ident.Value != "si" {
		t.Errorf("value = %q, want first property by sorted key", ident.Value)
	}
}

func TestNormalizeNeverRejects(t *testing.T) {
	// Malformed inputs degrade display quality but must not be dropped.
	for _, raw := range []any{"not-a-uuid", map[string]any{"type": "phone", "value": "abc"}, nil} {
		ident := Normalize(raw)
		if ident.Value == "" {
			t.Errorf("Normalize(%v) produced empty value", raw)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"nine digit national", "612345678", "+34 612 345 678", true},
		{"already has country code", "34612345678", "+34 612 345 678", true},
		{"non digits pass through", "+34 612 345 678", "+34 612 345 678", false},
		{"too short", "12345", "12345", false},
		{"too long", "346123456789", "346123456789", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatPhone(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FormatPhone(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatPhoneNineDigitsAlwaysSpanish(t *testing.T) {
	// Any digits-only 9-char value gets the +34 prefix.
	for _, in := range []string{"600000000", "911234567", "722334455"} {
		got, ok := FormatPhone(in)
		if !ok || !strings.HasPrefix(got, "+34") {
			t.Errorf("FormatPhone(%q) = %q, %v; want +34 prefix", in, got, ok)
		}
	}
}

func TestShortenUUID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical uuid", "a3bb189e-8bf9-3888-9912-ace4e6543002", "a3bb189e...3002"},
		{"shorter passes through", "a3bb189e-8bf9", "a3bb189e-8bf9"},
		{"35 chars passes through", strings.Repeat("x", 35), strings.Repeat("x", 35)},
		{"longer than uuid", strings.Repeat("ab", 20), "abababab...abab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortenUUID(tt.in); got != tt.want {
				t.Errorf("ShortenUUID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShortenUUIDSliceIndexes(t *testing.T) {
	// For exactly 36 chars the result is s[0:8] + "..." + s[32:36].
	s := "0123456789abcdefghijklmnopqrstuvwxyz"
	want := s[0:8] + "..." + s[32:36]
	if got := ShortenUUID(s); got != want {
		t.Errorf("ShortenUUID(%q) = %q, want %q", s, got, want)
	}
}

func TestChannel(t *testing.T) {
	tests := []struct {
		in   string
		want models.Channel
	}{
		{"Whatsapp", models.ChannelWhatsapp},
		{"whatsapp", models.ChannelWeb},
		{"WHATSAPP", models.ChannelWeb},
		{" Whatsapp", models.ChannelWeb},
		{"Web", models.ChannelWeb},
		{"", models.ChannelWeb},
		{"Telegram", models.ChannelWeb},
	}

	for _, tt := range tests {
		if got := Channel(tt.in); got != tt.want {
			t.Errorf("Channel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
