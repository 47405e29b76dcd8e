package client

import (
	"encoding/hex"
	"testing"
)

func TestDecodeJobResponseDecodesFeedsAndSignatures(t *testing.T) {
	queueID := "0x" + hex.EncodeToString(make([]byte, 32))
	oracleID := "0x" + hex.EncodeToString(append(make([]byte, 31), 0x01))
	sig := "0x" + hex.EncodeToString(make([]byte, 65))
	feedID := "0x" + hex.EncodeToString(append(make([]byte, 31), 0x02))

	resp := jobResponse{
		QueueID:          queueID,
		OracleIDs:        []string{oracleID},
		Signatures:       []string{sig},
		Slot:             7,
		TimestampSeconds: 1000,
		Feeds: []feedResponse{
			{FeedID: feedID, Value: "12345", Neg: false, MinOracleSamples: 1},
		},
	}

	sub, err := decodeJobResponse(resp)
	if err != nil {
		t.Fatalf("decodeJobResponse: %v", err)
	}
	if sub.Slot != 7 || sub.TimestampSeconds != 1000 {
		t.Fatalf("unexpected slot/timestamp: %+v", sub)
	}
	if len(sub.OracleIDs) != 1 || len(sub.Signatures) != 1 || len(sub.Feeds) != 1 {
		t.Fatalf("expected one committee member and one feed, got %+v", sub)
	}
	if sub.Feeds[0].Value.String() != "12345" {
		t.Fatalf("expected feed value 12345, got %s", sub.Feeds[0].Value.String())
	}
}

func TestDecodeJobResponseRejectsMalformedFeedValue(t *testing.T) {
	feedID := "0x" + hex.EncodeToString(make([]byte, 32))
	resp := jobResponse{
		QueueID: "0x" + hex.EncodeToString(make([]byte, 32)),
		Feeds:   []feedResponse{{FeedID: feedID, Value: "not-a-number"}},
	}
	if _, err := decodeJobResponse(resp); err == nil {
		t.Fatal("expected error for a non-numeric feed value")
	}
}

func TestDecodeJobResponseRejectsShortQueueID(t *testing.T) {
	resp := jobResponse{QueueID: "0x0102"}
	if _, err := decodeJobResponse(resp); err == nil {
		t.Fatal("expected error for a short queue id")
	}
}
