package memphis

import "testing"

func TestEnvelopeSetHeaderRejectsReserved(t *testing.T) {
	e := NewEnvelope([]byte("x"))
	if err := e.SetHeader("$memphis_producedBy", "spoof"); err == nil {
		t.Fatal("expected error setting a $memphis-prefixed header")
	}
}

func TestEnvelopeSetHeaderAccepted(t *testing.T) {
	e := NewEnvelope([]byte("x"))
	if err := e.SetHeader("TestHeader", "TestValue"); err != nil {
		t.Fatalf("SetHeader: %v", err)
	}
	if got := e.Headers["TestHeader"]; len(got) != 1 || got[0] != "TestValue" {
		t.Fatalf("unexpected header value: %v", got)
	}
}

func TestEnvelopeStampOverwritesIdentity(t *testing.T) {
	e := NewEnvelope([]byte("x"))
	e.MsgID = "abc"
	e.stamp("producer-1", "conn-1")

	if got := e.Headers[headerProducedBy]; len(got) != 1 || got[0] != "producer-1" {
		t.Fatalf("unexpected producedBy header: %v", got)
	}
	if got := e.Headers[headerConnectionID]; len(got) != 1 || got[0] != "conn-1" {
		t.Fatalf("unexpected connectionId header: %v", got)
	}
	if got := e.Headers[headerMsgID]; len(got) != 1 || got[0] != "abc" {
		t.Fatalf("unexpected msg-id header: %v", got)
	}
}

func TestEnvelopeStampWithoutMsgIDOmitsHeader(t *testing.T) {
	e := NewEnvelope([]byte("x"))
	e.stamp("producer-1", "conn-1")
	if _, ok := e.Headers[headerMsgID]; ok {
		t.Fatal("msg-id header should be absent when MsgID is unset")
	}
}
