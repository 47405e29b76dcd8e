package app

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"oraclewatcher/internal/client"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/submit"
)

// submissionFile is the on-disk JSON shape one recorded committee
// submission is stored as for backfill replay: hex-encoded ids/signatures
// and decimal-string feed values, rather than submit.CommitteeSubmission's
// raw byte-array encoding.
type submissionFile struct {
	QueueID          string     `json:"queue_id"`
	OracleIDs        []string   `json:"oracle_ids"`
	Signatures       []string   `json:"signatures"`
	Feeds            []feedFile `json:"feeds"`
	Slot             uint64     `json:"slot"`
	TimestampSeconds uint64     `json:"timestamp_seconds"`
}

type feedFile struct {
	FeedID           string `json:"feed_id"`
	Value            string `json:"value"`
	Neg              bool   `json:"neg"`
	MinOracleSamples uint8  `json:"min_oracle_samples"`
}

// LoadSubmissionsDir reads every *.json file in dir, in name order, and
// decodes each as one recorded committee submission for backfill replay.
func LoadSubmissionsDir(dir string) ([]submit.CommitteeSubmission, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read submissions dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	subs := make([]submit.CommitteeSubmission, 0, len(names))
	for _, name := range names {
		sub, err := loadSubmissionFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func loadSubmissionFile(path string) (submit.CommitteeSubmission, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return submit.CommitteeSubmission{}, err
	}

	var f submissionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return submit.CommitteeSubmission{}, err
	}

	queueID, err := client.ParseID(f.QueueID)
	if err != nil {
		return submit.CommitteeSubmission{}, fmt.Errorf("queue_id: %w", err)
	}

	oracleIDs := make([]queue.ID, len(f.OracleIDs))
	for i, s := range f.OracleIDs {
		id, err := client.ParseID(s)
		if err != nil {
			return submit.CommitteeSubmission{}, fmt.Errorf("oracle_ids[%d]: %w", i, err)
		}
		oracleIDs[i] = id
	}

	signatures := make([][]byte, len(f.Signatures))
	for i, s := range f.Signatures {
		sig, err := hexutil.Decode(s)
		if err != nil {
			return submit.CommitteeSubmission{}, fmt.Errorf("signatures[%d]: %w", i, err)
		}
		signatures[i] = sig
	}

	feeds := make([]submit.FeedInput, len(f.Feeds))
	for i, ff := range f.Feeds {
		feedID, err := client.ParseID(ff.FeedID)
		if err != nil {
			return submit.CommitteeSubmission{}, fmt.Errorf("feeds[%d].feed_id: %w", i, err)
		}
		value, ok := new(big.Int).SetString(ff.Value, 10)
		if !ok {
			return submit.CommitteeSubmission{}, fmt.Errorf("feeds[%d].value: invalid decimal string %q", i, ff.Value)
		}
		feeds[i] = submit.FeedInput{
			FeedID:           feedID,
			Value:            value,
			Neg:              ff.Neg,
			MinOracleSamples: ff.MinOracleSamples,
		}
	}

	return submit.CommitteeSubmission{
		QueueID:          queueID,
		OracleIDs:        oracleIDs,
		Signatures:       signatures,
		Feeds:            feeds,
		Slot:             f.Slot,
		TimestampSeconds: f.TimestampSeconds,
	}, nil
}
