package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type currentTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA timezone name such as Europe/Berlin (default: UTC)"`
}

// CurrentTimeTool reports the current time, optionally in a given timezone.
type CurrentTimeTool struct {
	// now is injectable for tests.
	now func() time.Time
}

// NewCurrentTimeTool creates a clock tool.
func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{now: time.Now}
}

func (t *CurrentTimeTool) Name() string { return "current_time" }

func (t *CurrentTimeTool) Description() string {
	return "Get the current date and time, optionally in a specific timezone."
}

func (t *CurrentTimeTool) Schema() json.RawMessage {
	return reflectSchema(&currentTimeInput{})
}

func (t *CurrentTimeTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var input currentTimeInput
	if err := json.Unmarshal(params, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	loc := time.UTC
	if input.Timezone != "" {
		parsed, err := time.LoadLocation(input.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q", input.Timezone)
		}
		loc = parsed
	}
	return t.now().In(loc).Format(time.RFC1123), nil
}
