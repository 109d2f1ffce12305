package repositories

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/pkg/errors"
)

// followCursor is the keyset position of the last edge on a page.
type followCursor struct {
	CreatedAt time.Time
	ID        uint64
}

func encodeCursor(createdAt time.Time, id uint64) string {
	raw := strconv.FormatInt(createdAt.UnixNano(), 10) + ":" + strconv.FormatUint(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (*followCursor, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidCursor, "decode")
	}

	nanos, id, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, errors.Wrap(apperrors.ErrInvalidCursor, "missing separator")
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidCursor, "timestamp")
	}
	edgeID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidCursor, "id")
	}

	return &followCursor{CreatedAt: time.Unix(0, ts).UTC(), ID: edgeID}, nil
}
