// Package oim stores offline instant messages on the filesystem: one
// directory per recipient uuid, one JSON file per message uuid (spec §6,
// §9 "OIM storage race").
package oim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/toeserve/presenced/internal/types"
)

// Store roots every OIM directory tree under Root.
type Store struct {
	Root string
}

// New returns a Store rooted at root. Nothing is created on disk until the
// first Save, which creates the recipient directory as needed.
func New(root string) *Store {
	return &Store{Root: root}
}

type fileFormat struct {
	UUID  string `json:"uuid"`
	RunID string `json:"run_id"`
	From  string `json:"from"`

	FromFriendly struct {
		FriendlyName string `json:"friendly_name"`
		Encoding     string `json:"encoding"`
		Charset      string `json:"charset"`
	} `json:"from_friendly"`

	FromUserID int64  `json:"from_user_id"`
	IsRead     bool   `json:"is_read"`
	Sent       string `json:"sent"`
	OriginIP   string `json:"origin_ip"`
	Proxy      string `json:"proxy"`
	Headers    string `json:"headers"`

	Message struct {
		Text string `json:"text"`
		UTF8 bool   `json:"utf8"`
	} `json:"message"`
}

func toFile(m *types.OIM) fileFormat {
	var f fileFormat
	f.UUID = m.UUID
	f.RunID = m.RunID
	f.From = m.FromEmail
	f.FromFriendly.FriendlyName = m.FromFriendly
	f.FromFriendly.Encoding = m.FromFriendlyEnc
	f.FromFriendly.Charset = m.FromFriendlyCset
	f.FromUserID = int64(m.FromUserID)
	f.IsRead = m.IsRead
	f.Sent = m.Sent.UTC().Format(time.RFC3339)
	f.OriginIP = m.OriginIP
	f.Proxy = m.OIMProxy
	f.Headers = m.Headers
	f.Message.Text = m.Text
	f.Message.UTF8 = m.UTF8
	return f
}

func fromFile(f fileFormat) *types.OIM {
	sent, _ := time.Parse(time.RFC3339, f.Sent)
	return &types.OIM{
		UUID:             f.UUID,
		RunID:            f.RunID,
		FromEmail:        f.From,
		FromFriendly:     f.FromFriendly.FriendlyName,
		FromFriendlyEnc:  f.FromFriendly.Encoding,
		FromFriendlyCset: f.FromFriendly.Charset,
		FromUserID:       types.Uid(f.FromUserID),
		IsRead:           f.IsRead,
		Sent:             sent,
		OriginIP:         f.OriginIP,
		OIMProxy:         f.Proxy,
		Headers:          f.Headers,
		Text:             f.Message.Text,
		UTF8:             f.Message.UTF8,
	}
}

func (s *Store) dir(recipientUUID string) string {
	return filepath.Join(s.Root, recipientUUID)
}

func (s *Store) path(recipientUUID, msgUUID string) string {
	return filepath.Join(s.dir(recipientUUID), msgUUID)
}

// GetBatch returns every queued message for recipientUUID.
func (s *Store) GetBatch(recipientUUID string) ([]*types.OIM, error) {
	entries, err := os.ReadDir(s.dir(recipientUUID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*types.OIM
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m, err := s.readFile(filepath.Join(s.dir(recipientUUID), e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Get returns the single message identified by (recipientUUID, msgUUID),
// marking it read when markRead is set. Returns (nil, nil) when the
// message does not exist.
//
// The original source inverts this check (returning nil when the file
// exists); this implementation returns the message exactly when the file is
// present.
func (s *Store) Get(recipientUUID, msgUUID string, markRead bool) (*types.OIM, error) {
	p := s.path(recipientUUID, msgUUID)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	m, err := s.readFile(p)
	if err != nil {
		return nil, err
	}
	if markRead && !m.IsRead {
		m.IsRead = true
		if err := s.writeFile(p, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *Store) readFile(path string) (*types.OIM, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return fromFile(f), nil
}

func (s *Store) writeFile(path string, m *types.OIM) error {
	raw, err := json.MarshalIndent(toFile(m), "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".oim-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Save stores m under recipientUUID, assigning a fresh UUID if m.UUID is
// empty. Writing goes through a temp file + rename so Get never observes a
// partially written file (spec §9).
func (s *Store) Save(recipientUUID string, m *types.OIM) (*types.OIM, error) {
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	if err := s.writeFile(s.path(recipientUUID, m.UUID), m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes one queued message. Deleting a missing message is not an
// error.
func (s *Store) Delete(recipientUUID, msgUUID string) error {
	err := os.Remove(s.path(recipientUUID, msgUUID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
