package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch {
	case subject == SubjectApprovalDecision:
		var p ApprovalDecisionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.RunID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("run_id is required"))
		}
		if p.Decider == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("decider is required"))
		}
	case subject == SubjectApprovalRequested:
		var p ApprovalRequestedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	case subject == SubjectApprovalResolved:
		var p ApprovalResolvedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	case strings.HasPrefix(subject, SubjectRunEvents+"."):
		var p RunEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.RunID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("run_id is required"))
		}
	}
	return nil
}
