package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/timetrail/timetrail/internal/domain/tracking"
)

// wireEvent is the JSON-lines encoding accepted by Replay. "type" selects
// the event; the remaining fields only apply to focus events.
type wireEvent struct {
	Type         string `json:"type"`
	AppID        string `json:"app_id,omitempty"`
	AppName      string `json:"app_name,omitempty"`
	WindowTitle  string `json:"window_title,omitempty"`
	URL          string `json:"url,omitempty"`
	DocumentPath string `json:"document_path,omitempty"`
	Icon         string `json:"icon,omitempty"`
}

// Replay reads JSON-lines events from r and pushes them into the feed as
// they arrive, until EOF or context cancellation. Blank lines and lines
// starting with '#' are skipped.
func Replay(ctx context.Context, r io.Reader, feed *Feed) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ev, err := decodeEvent(line)
		if err != nil {
			return err
		}
		feed.Emit(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	return nil
}

func decodeEvent(line string) (tracking.Event, error) {
	var we wireEvent
	if err := json.Unmarshal([]byte(line), &we); err != nil {
		return nil, fmt.Errorf("parsing event %q: %w", line, err)
	}

	switch we.Type {
	case "focus":
		return tracking.FocusEvent{
			AppID:        we.AppID,
			AppName:      we.AppName,
			WindowTitle:  we.WindowTitle,
			URL:          we.URL,
			DocumentPath: we.DocumentPath,
			Icon:         we.Icon,
		}, nil
	case "suspend":
		return tracking.SuspendEvent{}, nil
	case "resume":
		return tracking.ResumeEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", we.Type)
	}
}
