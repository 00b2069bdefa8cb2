package dispatch

import (
	"testing"

	"github.com/friendsincode/heimdall/internal/events"
)

func TestTextRendererSubstitutesPayloadFields(t *testing.T) {
	out, err := TextRenderer{}.Render(
		`Channel {{.channel_name}} changed to {{.state}}`,
		events.Payload{"channel_name": "BBC One", "state": "live"},
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Channel BBC One changed to live" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTextRendererTrimsSurroundingWhitespace(t *testing.T) {
	out, err := TextRenderer{}.Render("\n  {{.name}}  \n", events.Payload{"name": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "x" {
		t.Fatalf("expected trimmed output, got %q", out)
	}
}

func TestTextRendererMissingKeyFails(t *testing.T) {
	if _, err := (TextRenderer{}).Render(`{{.missing}}`, events.Payload{"name": "x"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestTextRendererBadSyntaxFails(t *testing.T) {
	if _, err := (TextRenderer{}).Render(`{{.name`, events.Payload{"name": "x"}); err == nil {
		t.Fatal("expected parse error")
	}
}
