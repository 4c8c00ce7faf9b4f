package admobreport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dvloznov/admob-reporting/internal/admob"
)

func TestPubSubMessage_DecodesBase64(t *testing.T) {
	var m PubSubMessage
	// "pub-4194291010476912" base64 encoded.
	if err := json.Unmarshal([]byte(`{"data":"cHViLTQxOTQyOTEwMTA0NzY5MTI="}`), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	got, err := DecodePublisherID(m.Data)
	if err != nil {
		t.Fatalf("DecodePublisherID failed: %v", err)
	}
	if got != "pub-4194291010476912" {
		t.Errorf("DecodePublisherID() = %q", got)
	}
}

func TestDecodePublisherID_Invalid(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("   "), []byte("not-a-publisher")} {
		_, err := DecodePublisherID(data)
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("DecodePublisherID(%q) = %v, want ErrInvalidPayload", data, err)
		}
		if !errors.Is(err, admob.ErrInvalidPublisherID) {
			t.Errorf("DecodePublisherID(%q) should wrap ErrInvalidPublisherID", data)
		}
	}
}

func TestNetworkReport_RejectsPayloadBeforeInit(t *testing.T) {
	err := NetworkReport(context.Background(), PubSubMessage{Data: []byte("garbage")})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
	if instance.service != nil {
		t.Error("no clients should be created for an invalid payload")
	}
}
