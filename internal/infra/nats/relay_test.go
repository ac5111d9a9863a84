package nats

import (
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent([]byte(`{"event":"LeaderboardUpdated","scope":"weekly","seq":4,"payload":{"period":"weekly"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Name != "LeaderboardUpdated" || event.Scope != "weekly" || event.Seq != 4 {
		t.Fatalf("unexpected event %+v", event)
	}
	if string(event.Payload) != `{"period":"weekly"}` {
		t.Fatalf("unexpected payload %s", event.Payload)
	}
	if event.Stream() != "LeaderboardUpdated/weekly" {
		t.Fatalf("unexpected stream %q", event.Stream())
	}
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	for _, raw := range []string{`{"seq":1}`, `not json`, `[]`} {
		if _, err := decodeEvent([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestNewRelayDefaults(t *testing.T) {
	r := NewRelay(nil, "", nil)
	if r.subject != DefaultSubject || r.log == nil {
		t.Fatalf("unexpected defaults %+v", r)
	}
	r.Close()
}
