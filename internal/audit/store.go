package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	id "agripass/pkg/domain"
)

// Cursor is an opaque pagination token. Empty means "from the beginning".
type Cursor string

// Page bounds a trail query. Limit <= 0 applies DefaultPageLimit.
type Page struct {
	Cursor Cursor
	Limit  int
}

const DefaultPageLimit = 50

// Store persists the append-only trail. Append assigns Entry.Seq (and Entry.ID
// when unset) and must never mutate or delete existing entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	// ListBySubject returns entries ordered by timestamp then seq, ascending,
	// strictly after the cursor. The returned cursor is empty when the page
	// reached the end of the trail.
	ListBySubject(ctx context.Context, subjectID id.SubjectID, page Page) ([]Entry, Cursor, error)
}

// cursorPosition decodes a cursor into the last-seen (timestamp, seq)
// position. The cursor must carry both: ordering is timestamp-first, but
// sequence numbers are assigned at append time, so a concurrently appended
// entry can sort before an already-paged one. A seq-only watermark would skip
// it; the composite position never does.
func cursorPosition(c Cursor) (time.Time, uint64, error) {
	if c == "" {
		return time.Time{}, 0, nil
	}
	rawTS, rawSeq, ok := strings.Cut(string(c), "-")
	if !ok {
		return time.Time{}, 0, strconv.ErrSyntax
	}
	nanos, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	seq, err := strconv.ParseUint(rawSeq, 10, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	return time.Unix(0, nanos).UTC(), seq, nil
}

// positionCursor encodes an entry's trail position as a cursor.
func positionCursor(e Entry) Cursor {
	return Cursor(strconv.FormatInt(e.Timestamp.UnixNano(), 10) + "-" +
		strconv.FormatUint(e.Seq, 10))
}

// afterPosition reports whether the entry sorts strictly after the position.
func afterPosition(e Entry, ts time.Time, seq uint64) bool {
	if e.Timestamp.Equal(ts) {
		return e.Seq > seq
	}
	return e.Timestamp.After(ts)
}
