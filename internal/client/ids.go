package client

import (
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"oraclewatcher/internal/queue"
)

var errInvalidIDLength = errors.New("client: expected a 32-byte hex value")

// ParseID decodes a 0x-prefixed 32-byte hex string into a queue.ID, for
// parsing configuration values such as discovery.queue_id.
func ParseID(hexID string) (queue.ID, error) {
	return decodeID(hexID)
}

func decodeID(hexID string) (queue.ID, error) {
	b, err := decodeBytes(hexID)
	if err != nil {
		return queue.ID{}, err
	}
	if len(b) != 32 {
		return queue.ID{}, errInvalidIDLength
	}
	var id queue.ID
	copy(id[:], b)
	return id, nil
}

func decodeBytes(hexStr string) ([]byte, error) {
	return hexutil.Decode(hexStr)
}
