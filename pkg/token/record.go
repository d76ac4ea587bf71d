package token

import (
	"encoding/json"
	"time"
)

// expiryLayout is the on-disk timestamp format for the access token expiry.
// Kept stable so token files survive upgrades.
const expiryLayout = "2006-01-02 15:04:05"

// Record is the persisted OAuth2 token state: a long-lived refresh token,
// the current short-lived access token and its absolute expiry.
type Record struct {
	RefreshToken string
	AccessToken  string
	Expiry       time.Time
}

// Fresh reports whether the access token is still valid at the given instant.
func (r *Record) Fresh(now time.Time) bool {
	return now.Before(r.Expiry)
}

// recordFile is the serialized shape of a Record.
type recordFile struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
	Expiry  string `json:"expiry"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordFile{
		Refresh: r.RefreshToken,
		Access:  r.AccessToken,
		Expiry:  r.Expiry.Format(expiryLayout),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var rf recordFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return err
	}
	expiry, err := time.ParseInLocation(expiryLayout, rf.Expiry, time.Local)
	if err != nil {
		return err
	}
	r.RefreshToken = rf.Refresh
	r.AccessToken = rf.Access
	r.Expiry = expiry
	return nil
}
