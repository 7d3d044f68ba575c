package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/joelklabo/rcd/internal/cooldown"
)

const (
	// DefaultTimezone is assigned to new profiles.
	DefaultTimezone = "America/Chicago"
	// DefaultTimeFormat renders expiries as "03:04:05 PM, 11/26".
	DefaultTimeFormat = "03:04:05 PM, 01/02"
)

// Profile is a player known to the bot.
type Profile struct {
	UID        string `json:"uid"`
	ServerID   string `json:"server_id"`
	ChannelID  string `json:"channel_id"`
	Nickname   string `json:"last_known_nickname"`
	Timezone   string `json:"timezone"`
	TimeFormat string `json:"time_format"`
	// Notify is the master switch for reminders.
	Notify bool `json:"notify"`
	// Muted holds the cooldown types the player turned off.
	Muted map[cooldown.Type]bool `json:"muted,omitempty"`
}

// Notifies reports whether reminders for t are enabled, ignoring the master switch.
func (p Profile) Notifies(t cooldown.Type) bool { return !p.Muted[t] }

// SetNotifies toggles reminders for t.
func (p *Profile) SetNotifies(t cooldown.Type, on bool) {
	if on {
		delete(p.Muted, t)
		return
	}
	if p.Muted == nil {
		p.Muted = make(map[cooldown.Type]bool)
	}
	p.Muted[t] = true
}

func (p *Profile) applyDefaults() {
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if p.TimeFormat == "" {
		p.TimeFormat = DefaultTimeFormat
	}
}

// GetOrCreateProfile returns the profile stored under p.UID, creating it from p
// when absent. The boolean is true if the profile was created.
func (s *Store) GetOrCreateProfile(p Profile) (Profile, bool, error) {
	if p.UID == "" {
		return Profile{}, false, fmt.Errorf("get or create profile: empty uid")
	}
	var (
		out     Profile
		created bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		found, err := getJSON(b, p.UID, &out)
		if err != nil || found {
			return err
		}
		p.applyDefaults()
		out, created = p, true
		return putJSON(b, p.UID, p)
	})
	if err != nil {
		return Profile{}, false, fmt.Errorf("get or create profile %s: %w", p.UID, err)
	}
	return out, created, nil
}

// Profile loads a profile by uid.
func (s *Store) Profile(uid string) (Profile, error) {
	var p Profile
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx.Bucket(bucketProfiles), uid, &p)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
	return p, err
}

// UpdateProfile applies fn to the stored profile inside one transaction.
func (s *Store) UpdateProfile(uid string, fn func(*Profile)) (Profile, error) {
	var p Profile
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		found, err := getJSON(b, uid, &p)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		fn(&p)
		p.UID = uid
		return putJSON(b, uid, p)
	})
	if err != nil {
		return Profile{}, fmt.Errorf("update profile %s: %w", uid, err)
	}
	return p, nil
}

func decodeProfile(data []byte) (Profile, error) {
	var p Profile
	err := json.Unmarshal(data, &p)
	return p, err
}
