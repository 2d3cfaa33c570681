package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
)

// toStorageSession repacks a gotd session into the row gotgproto reads
// at startup. The storage row carries the gotd session as raw JSON, so
// a QR login done through gotd can be resumed by the gotgproto client.
func toStorageSession(data *session.Data) (*storage.Session, error) {
	if data == nil {
		return nil, fmt.Errorf("no session data to save")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}

	return &storage.Session{
		Version: storage.LatestVersion,
		Data:    raw,
	}, nil
}
