package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/joelklabo/rcd/internal/cooldown"
)

// Cooldown is the stored expiry of one (profile, type) pair.
type Cooldown struct {
	ProfileID string        `json:"profile_id"`
	Type      cooldown.Type `json:"type"`
	After     time.Time     `json:"after"`
}

func cooldownKey(profileID string, t cooldown.Type) []byte {
	return []byte(profileID + "/" + string(t))
}

func cooldownPrefix(profileID string) []byte {
	return []byte(profileID + "/")
}

// Cooldowns returns the rows of a profile ordered by expiry.
func (s *Store) Cooldowns(profileID string) ([]Cooldown, error) {
	var out []Cooldown
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = scanCooldowns(tx, profileID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load cooldowns %s: %w", profileID, err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].After.Before(out[j].After) })
	return out, nil
}

func scanCooldowns(tx *bolt.Tx, profileID string) ([]Cooldown, error) {
	var out []Cooldown
	prefix := cooldownPrefix(profileID)
	c := tx.Bucket(bucketCooldowns).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var cd Cooldown
		if err := json.Unmarshal(v, &cd); err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, nil
}

// ApplyCooldowns upserts updates and deletes evictions in a single transaction.
// The last write to a key wins.
func (s *Store) ApplyCooldowns(updates []cooldown.Update, evictions []cooldown.Eviction) error {
	if len(updates) == 0 && len(evictions) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCooldowns)
		for _, u := range updates {
			cd := Cooldown{ProfileID: u.ProfileID, Type: u.Type, After: u.After.UTC()}
			data, err := json.Marshal(cd)
			if err != nil {
				return err
			}
			if err := b.Put(cooldownKey(u.ProfileID, u.Type), data); err != nil {
				return err
			}
		}
		for _, e := range evictions {
			if err := b.Delete(cooldownKey(e.ProfileID, e.Type)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Available lists profiles of serverID, except exclude, that have no cooldown
// of type t running at the given time.
func (s *Store) Available(serverID, exclude string, t cooldown.Type, at time.Time) ([]Profile, error) {
	var out []Profile
	err := s.db.View(func(tx *bolt.Tx) error {
		cds := tx.Bucket(bucketCooldowns)
		return tx.Bucket(bucketProfiles).ForEach(func(_, v []byte) error {
			p, err := decodeProfile(v)
			if err != nil {
				return err
			}
			if p.ServerID != serverID || p.UID == exclude {
				return nil
			}
			if data := cds.Get(cooldownKey(p.UID, t)); data != nil {
				var cd Cooldown
				if err := json.Unmarshal(data, &cd); err != nil {
					return err
				}
				if cd.After.After(at) {
					return nil
				}
			}
			out = append(out, p)
			return nil
		})
	})
	return out, err
}
