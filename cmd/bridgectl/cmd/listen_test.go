package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/sekia-ai/nativebridge/pkg/model"
)

func TestReadEvents(t *testing.T) {
	stream := "event: tts\ndata: {\"code\":\"boundary\",\"mark\":\"pos:0-5\",\"utteranceId\":\"u1\"}\n\n" +
		"event: tts\ndata: {\"code\":\"end\",\"utteranceId\":\"u1\"}\n\n"

	var got []string
	err := readEvents(strings.NewReader(stream), func(ev model.TTSMessageEvent, _ string) {
		got = append(got, formatEvent(ev))
	})
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	want := []string{"boundary utterance=u1 mark=pos:0-5", "end utterance=u1"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReadEventsOverflow(t *testing.T) {
	stream := "event: tts\ndata: {\"code\":\"end\"}\n\nevent: overflow\ndata: {}\n\n"
	n := 0
	err := readEvents(strings.NewReader(stream), func(model.TTSMessageEvent, string) { n++ })
	if !errors.Is(err, errOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 event before overflow, got %d", n)
	}
}

func TestReadEventsRejectsBadEvent(t *testing.T) {
	stream := "event: tts\ndata: {\"code\":\"start\"}\n\n"
	if err := readEvents(strings.NewReader(stream), func(model.TTSMessageEvent, string) {}); err == nil {
		t.Fatal("expected error for unknown event code")
	}
}

func TestReadPayload(t *testing.T) {
	p, err := readPayload(nil, "", nil)
	if err != nil || string(p) != "{}" {
		t.Fatalf("default payload = %q, %v", p, err)
	}
	p, err = readPayload(nil, "-", strings.NewReader(`{"rate":1.5}`))
	if err != nil || string(p) != `{"rate":1.5}` {
		t.Fatalf("stdin payload = %q, %v", p, err)
	}
	if _, err := readPayload([]string{"{}"}, "x.json", nil); err == nil {
		t.Fatal("expected error for inline payload and --file")
	}
}
