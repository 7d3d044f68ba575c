package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Server is a chat server that joined with a join code.
type Server struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	Active   bool      `json:"active"`
	JoinedAt time.Time `json:"joined_at"`
}

// JoinCode gates onboarding; each code admits one server.
type JoinCode struct {
	Code    string `json:"code"`
	Claimed bool   `json:"claimed"`
}

// AddJoinCode stores a new unclaimed code. Existing codes are left untouched.
func (s *Store) AddJoinCode(code string) error {
	if code == "" {
		return errors.New("empty join code")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJoinCodes)
		if b.Get([]byte(code)) != nil {
			return nil
		}
		return putJSON(b, code, JoinCode{Code: code})
	})
}

// JoinCodes lists all codes in key order.
func (s *Store) JoinCodes() ([]JoinCode, error) {
	var out []JoinCode
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJoinCodes).ForEach(func(_, v []byte) error {
			var jc JoinCode
			if err := json.Unmarshal(v, &jc); err != nil {
				return err
			}
			out = append(out, jc)
			return nil
		})
	})
	return out, err
}

// Server loads a server by id.
func (s *Store) Server(id string) (Server, error) {
	var srv Server
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx.Bucket(bucketServers), id, &srv)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
	return srv, err
}

// Register claims code for a new server in one transaction. Unknown or
// already-claimed codes yield ErrInvalidJoinCode.
func (s *Store) Register(id, name, code string) (Server, error) {
	srv := Server{ID: id, Name: name, Code: code, Active: true, JoinedAt: s.now().UTC()}
	err := s.db.Update(func(tx *bolt.Tx) error {
		codes := tx.Bucket(bucketJoinCodes)
		var jc JoinCode
		found, err := getJSON(codes, code, &jc)
		if err != nil {
			return err
		}
		if !found || jc.Claimed {
			return ErrInvalidJoinCode
		}
		servers := tx.Bucket(bucketServers)
		if servers.Get([]byte(id)) != nil {
			return fmt.Errorf("server %s already registered", id)
		}
		jc.Claimed = true
		if err := putJSON(codes, code, jc); err != nil {
			return err
		}
		return putJSON(servers, id, srv)
	})
	if err != nil {
		return Server{}, fmt.Errorf("register server %s: %w", id, err)
	}
	return srv, nil
}
