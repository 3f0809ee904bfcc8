package eventlog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/madn-server/internal/apperr"
)

type cursorToken struct {
	At  int64  `json:"t"`
	Seq uint64 `json:"s"`
}

// EncodeCursor turns a key into an opaque poll cursor.
func EncodeCursor(k Key) string {
	data, _ := json.Marshal(cursorToken{At: k.At, Seq: k.Seq})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor from EncodeCursor. An empty token is the zero key.
func DecodeCursor(token string) (Key, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Key{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Key{}, apperr.Wrap(apperr.CodeInvalidCursor, err, "decode cursor")
	}
	var c cursorToken
	if err := json.Unmarshal(data, &c); err != nil {
		return Key{}, apperr.Wrap(apperr.CodeInvalidCursor, err, "unmarshal cursor")
	}
	if c.Seq == 0 {
		return Key{}, apperr.New(apperr.CodeInvalidCursor, "cursor %s has no sequence", fmt.Sprintf("%.12s", token))
	}
	return Key{At: c.At, Seq: c.Seq}, nil
}
