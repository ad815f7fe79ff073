package cacheaside

import (
	"context"
	"strings"
)

func (s *service) RawInfo(ctx context.Context) (string, error) {
	return s.st.Info(ctx)
}

func (s *service) Info(ctx context.Context) (map[string]string, error) {
	raw, err := s.st.Info(ctx)
	if err != nil {
		return nil, err
	}
	return ParseInfo(raw), nil
}

// ParseInfo reads an INFO text block into key/value pairs. Blank lines and
// "# Section" headers are skipped, each line splits on its first ':', and a
// later duplicate key overwrites an earlier one.
func ParseInfo(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
