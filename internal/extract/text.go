package extract

import (
	"context"
	"strings"
)

// Text decodes content as UTF-8, replacing invalid byte sequences with
// U+FFFD.
type Text struct{}

func (Text) Extract(_ context.Context, _, _ string, data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
