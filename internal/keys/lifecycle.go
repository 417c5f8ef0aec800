package keys

import (
	"io"
	"time"
)

// Validity is how long an issued or re-issued key stays valid, in days.
const Validity = 365

// Lifecycle decides key issuance and re-issuance over a snapshot.
// It never touches storage; callers load and save around it.
type Lifecycle struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Entropy defaults to crypto/rand.
	Entropy io.Reader
}

func (l *Lifecycle) today() Date {
	now := time.Now
	if l != nil && l.Now != nil {
		now = l.Now
	}
	return DateOf(now())
}

func (l *Lifecycle) entropy() io.Reader {
	if l == nil {
		return nil
	}
	return l.Entropy
}

func (l *Lifecycle) freshRecord(snap Snapshot, status Status) (Record, error) {
	key, err := GenerateUniqueKey(snap.IssuedKeys(), l.entropy())
	if err != nil {
		return Record{}, err
	}
	return Record{
		Key:            key,
		ExpirationDate: l.today().AddDays(Validity),
		ReissueStatus:  status,
	}, nil
}

// IssueOrFetch returns the user's record, creating one when the user has
// none or has an incomplete one. changed reports whether snap was modified.
func (l *Lifecycle) IssueOrFetch(userID string, snap Snapshot) (rec Record, changed bool, err error) {
	if existing, ok := snap[userID]; ok && existing.Complete() {
		return existing, false, nil
	}
	rec, err = l.freshRecord(snap, StatusAllowed)
	if err != nil {
		return Record{}, false, err
	}
	snap[userID] = rec
	return rec, true, nil
}

// Reissue replaces the user's key once. On success the new record is stored
// in snap with StatusForbidden.
func (l *Lifecycle) Reissue(userID string, snap Snapshot) (Record, error) {
	existing, ok := snap[userID]
	if !ok {
		return Record{}, ErrNoKey
	}
	if !existing.Complete() {
		return Record{}, ErrCorruptRecord
	}
	if l.today().After(existing.ExpirationDate) {
		return Record{}, ErrExpired
	}
	if existing.ReissueStatus == StatusForbidden {
		return Record{}, ErrAlreadyForbidden
	}

	rec, err := l.freshRecord(snap, StatusForbidden)
	if err != nil {
		return Record{}, err
	}
	snap[userID] = rec
	return rec, nil
}
